package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/prajwalbharadwajbm/bidengine/internal/database"
	"github.com/prajwalbharadwajbm/bidengine/internal/models"
)

const campaignColumns = `id, name, advertiser_id, status, cpm_bid, daily_budget, lifetime_budget,
		spent_today, lifetime_spent, created_at, updated_at`

// PostgresRepository implements Repository using PostgreSQL with pgvector
type PostgresRepository struct {
	db *database.DB
}

var _ Repository = (*PostgresRepository)(nil)

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(db *database.DB) *PostgresRepository {
	return &PostgresRepository{
		db: db,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCampaign(row rowScanner) (models.Campaign, error) {
	var c models.Campaign
	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.AdvertiserID,
		&c.Status,
		&c.CPMBid,
		&c.DailyBudget,
		&c.LifetimeBudget,
		&c.SpentToday,
		&c.LifetimeSpent,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	return c, err
}

// GetCampaign retrieves one campaign with its ads and targeting rules
func (r *PostgresRepository) GetCampaign(ctx context.Context, id uuid.UUID) (*models.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id = $1`

	campaign, err := scanCampaign(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCampaignNotFound
		}
		return nil, fmt.Errorf("failed to query campaign: %w", err)
	}

	campaigns := []models.Campaign{campaign}
	if err := r.loadChildren(ctx, campaigns); err != nil {
		return nil, err
	}
	return &campaigns[0], nil
}

// GetCampaignsByStatus retrieves all campaigns in a status with their ads and rules
func (r *PostgresRepository) GetCampaignsByStatus(ctx context.Context, status models.CampaignStatus) ([]models.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE status = $1 ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, status)
	if err != nil {
		return nil, fmt.Errorf("failed to query campaigns: %w", err)
	}
	defer rows.Close()

	campaigns := make([]models.Campaign, 0)
	for rows.Next() {
		campaign, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan campaign: %w", err)
		}
		campaigns = append(campaigns, campaign)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over campaign rows: %w", err)
	}

	if len(campaigns) == 0 {
		return campaigns, nil
	}

	if err := r.loadChildren(ctx, campaigns); err != nil {
		return nil, err
	}
	return campaigns, nil
}

// loadChildren fills Ads and Rules of the campaigns with one query each
func (r *PostgresRepository) loadChildren(ctx context.Context, campaigns []models.Campaign) error {
	ids := make([]string, len(campaigns))
	index := make(map[uuid.UUID]int, len(campaigns))
	for i := range campaigns {
		ids[i] = campaigns[i].ID.String()
		index[campaigns[i].ID] = i
		campaigns[i].Ads = []models.Ad{}
		campaigns[i].Rules = []models.TargetingRule{}
	}

	adsQuery := `
		SELECT id, campaign_id, title, image_url, redirect_url, COALESCE(description, ''), created_at
		FROM ads
		WHERE campaign_id = ANY($1::uuid[])
		ORDER BY campaign_id, created_at, id
	`
	adRows, err := r.db.QueryContext(ctx, adsQuery, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to query ads: %w", err)
	}
	defer adRows.Close()

	for adRows.Next() {
		var ad models.Ad
		if err := adRows.Scan(&ad.ID, &ad.CampaignID, &ad.Title, &ad.ImageURL, &ad.RedirectURL, &ad.Description, &ad.CreatedAt); err != nil {
			return fmt.Errorf("failed to scan ad: %w", err)
		}
		i := index[ad.CampaignID]
		campaigns[i].Ads = append(campaigns[i].Ads, ad)
	}
	if err := adRows.Err(); err != nil {
		return fmt.Errorf("error iterating over ads: %w", err)
	}

	rulesQuery := `
		SELECT id, campaign_id, rule_type, rule_value, created_at
		FROM campaign_targeting_rules
		WHERE campaign_id = ANY($1::uuid[])
		ORDER BY campaign_id, rule_type, rule_value
	`
	ruleRows, err := r.db.QueryContext(ctx, rulesQuery, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to query targeting rules: %w", err)
	}
	defer ruleRows.Close()

	for ruleRows.Next() {
		var rule models.TargetingRule
		if err := ruleRows.Scan(&rule.ID, &rule.CampaignID, &rule.RuleType, &rule.RuleValue, &rule.CreatedAt); err != nil {
			return fmt.Errorf("failed to scan targeting rule: %w", err)
		}
		i := index[rule.CampaignID]
		campaigns[i].Rules = append(campaigns[i].Rules, rule)
	}
	if err := ruleRows.Err(); err != nil {
		return fmt.Errorf("error iterating over targeting rules: %w", err)
	}

	return nil
}

// IncrementSpend locks the campaign row, checks both ceilings and writes the
// new totals in one transaction
func (r *PostgresRepository) IncrementSpend(ctx context.Context, id uuid.UUID, cost decimal.Decimal, at time.Time) (models.Campaign, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Campaign{}, fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id = $1 FOR UPDATE`
	campaign, err := scanCampaign(tx.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Campaign{}, ErrCampaignNotFound
		}
		return models.Campaign{}, fmt.Errorf("lock campaign: %w", err)
	}

	spent := campaign.SpentToday.Add(cost)
	lifetime := campaign.LifetimeSpent.Add(cost)
	if !campaign.WithinCeilings(spent, lifetime) {
		return models.Campaign{}, ErrBudgetExceeded
	}

	update := `UPDATE campaigns SET spent_today = $2, lifetime_spent = $3, updated_at = $4 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, update, id, spent, lifetime, at); err != nil {
		return models.Campaign{}, fmt.Errorf("update spend: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return models.Campaign{}, fmt.Errorf("tx commit: %w", err)
	}
	committed = true

	campaign.SpentToday = spent
	campaign.LifetimeSpent = lifetime
	campaign.UpdatedAt = at
	return campaign, nil
}

// ResetDailySpend zeroes spent_today in one statement. Rows already at zero
// are untouched, so a second run in the same day reports nothing.
func (r *PostgresRepository) ResetDailySpend(ctx context.Context, at time.Time) ([]uuid.UUID, error) {
	query := `UPDATE campaigns SET spent_today = 0, updated_at = $1 WHERE spent_today <> 0 RETURNING id`

	rows, err := r.db.QueryContext(ctx, query, at)
	if err != nil {
		return nil, fmt.Errorf("failed to reset daily spend: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan campaign id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over reset rows: %w", err)
	}
	return ids, nil
}

// GetVideo retrieves a video with its embedding
func (r *PostgresRepository) GetVideo(ctx context.Context, id uuid.UUID) (*models.Video, error) {
	query := `SELECT id, title, COALESCE(description, ''), embedding, created_at FROM videos WHERE id = $1`

	var v models.Video
	err := r.db.QueryRowContext(ctx, query, id).Scan(&v.ID, &v.Title, &v.Description, &v.Embedding, &v.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVideoNotFound
		}
		return nil, fmt.Errorf("failed to query video: %w", err)
	}
	return &v, nil
}

// ListVideos returns the newest videos first, without embeddings
func (r *PostgresRepository) ListVideos(ctx context.Context, limit int) ([]models.Video, error) {
	query := `SELECT id, title, COALESCE(description, ''), created_at FROM videos ORDER BY created_at DESC, id LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query videos: %w", err)
	}
	defer rows.Close()

	videos := make([]models.Video, 0, limit)
	for rows.Next() {
		var v models.Video
		if err := rows.Scan(&v.ID, &v.Title, &v.Description, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan video: %w", err)
		}
		videos = append(videos, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over videos: %w", err)
	}
	return videos, nil
}

// RankAds orders ads by pgvector cosine distance to the embedding
func (r *PostgresRepository) RankAds(ctx context.Context, embedding models.Embedding, k int) ([]models.RankedAd, error) {
	query := `
		SELECT id, campaign_id, title, image_url, redirect_url, COALESCE(description, ''), created_at,
		       1 - (embedding <=> $1::vector) AS score
		FROM ads
		WHERE embedding IS NOT NULL
		ORDER BY embedding <=> $1::vector, id
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, embedding, k)
	if err != nil {
		return nil, fmt.Errorf("failed to rank ads: %w", err)
	}
	defer rows.Close()

	ranked := make([]models.RankedAd, 0, k)
	for rows.Next() {
		var ra models.RankedAd
		err := rows.Scan(&ra.Ad.ID, &ra.Ad.CampaignID, &ra.Ad.Title, &ra.Ad.ImageURL,
			&ra.Ad.RedirectURL, &ra.Ad.Description, &ra.Ad.CreatedAt, &ra.Score)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ranked ad: %w", err)
		}
		ranked = append(ranked, ra)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over ranked ads: %w", err)
	}
	return ranked, nil
}

// RankAdsByVideo ranks ads against the stored embedding of a video
func (r *PostgresRepository) RankAdsByVideo(ctx context.Context, videoID uuid.UUID, k int) ([]models.RankedAd, error) {
	video, err := r.GetVideo(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if len(video.Embedding) == 0 {
		return nil, ErrVideoNotFound
	}
	return r.RankAds(ctx, video.Embedding, k)
}

// HealthCheck pings the database
func (r *PostgresRepository) HealthCheck(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}
