package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"feedsync/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

// =============================================================================
// Listings
// =============================================================================

var listingColumns = []string{
	"listing_id", "owner_id", "listing_key_numeric", "status", "property_type", "property_sub_type",
	"street_number", "street_name", "city", "state_or_province", "postal_code", "county",
	"list_price", "close_price", "original_list_date", "close_date", "days_on_market",
	"bedrooms", "bathrooms_full", "bathrooms_half", "rooms_total", "living_area",
	"lot_size_acres", "lot_size_square_feet", "year_built", "photos_count", "remarks",
	"latitude", "longitude", "features", "agent_summary", "updated_at",
}

var (
	listingSelect = strings.Join(listingColumns, ", ")
	listingUpsert = buildListingUpsert()
)

func buildListingUpsert() string {
	placeholders := make([]string, len(listingColumns))
	sets := make([]string, 0, len(listingColumns)-1)
	for i, col := range listingColumns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		if col != "listing_id" {
			sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", col, col))
		}
	}
	return fmt.Sprintf(`
		INSERT INTO listings (%s)
		VALUES (%s)
		ON CONFLICT (listing_id) DO UPDATE SET
			%s`,
		listingSelect, strings.Join(placeholders, ", "), strings.Join(sets, ",\n\t\t\t"))
}

// UpsertListing writes every column of the listing. An existing row is
// fully overwritten; absent fields become NULL.
func (s *PostgresStore) UpsertListing(ctx context.Context, l *models.Listing) error {
	_, err := s.pool.Exec(ctx, listingUpsert,
		l.ListingID, l.OwnerID, l.ListingKeyNumeric, l.Status, l.PropertyType, l.PropertySubType,
		l.StreetNumber, l.StreetName, l.City, l.StateOrProvince, l.PostalCode, l.County,
		l.ListPrice, l.ClosePrice, l.OriginalListDate, l.CloseDate, l.DaysOnMarket,
		l.Bedrooms, l.BathroomsFull, l.BathroomsHalf, l.RoomsTotal, l.LivingArea,
		l.LotSizeAcres, l.LotSizeSquareFeet, l.YearBuilt, l.PhotosCount, l.Remarks,
		l.Latitude, l.Longitude, l.Features, l.AgentSummary, l.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert listing %s: %w", l.ListingID, err)
	}
	return nil
}

// ListListings reads the count and the window inside one read-only
// snapshot so the total matches the rows.
func (s *PostgresStore) ListListings(ctx context.Context, filter models.ListingFilter) ([]models.Listing, int, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	where := ""
	args := []any{}
	if filter.OwnerID != nil {
		where = " WHERE owner_id = $1"
		args = append(args, *filter.OwnerID)
	}

	var total int
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM listings`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count listings: %w", err)
	}

	query := `SELECT ` + listingSelect + ` FROM listings` + where +
		` ORDER BY updated_at DESC, listing_id ASC`
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query listings: %w", err)
	}
	listings, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.Listing])
	if err != nil {
		return nil, 0, fmt.Errorf("scan listings: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, 0, fmt.Errorf("commit: %w", err)
	}
	return listings, total, nil
}

// GetListing returns nil, nil when the listing does not exist.
func (s *PostgresStore) GetListing(ctx context.Context, listingID string) (*models.Listing, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+listingSelect+` FROM listings WHERE listing_id = $1`, listingID)
	if err != nil {
		return nil, fmt.Errorf("query listing: %w", err)
	}
	l, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[models.Listing])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan listing: %w", err)
	}
	return l, nil
}

// =============================================================================
// Identities
// =============================================================================

func (s *PostgresStore) GetIdentities(ctx context.Context, ids []string) (map[string]models.AgentIdentity, error) {
	out := make(map[string]models.AgentIdentity, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id::text AS id, first_name, last_name, email, contact, image_url
		FROM users WHERE id::text = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	identities, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.AgentIdentity])
	if err != nil {
		return nil, fmt.Errorf("scan users: %w", err)
	}
	for _, ident := range identities {
		out[ident.ID] = ident
	}
	return out, nil
}
