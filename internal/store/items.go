package store

import (
	"context"
	"database/sql"
	"math"
	"strings"
	"time"

	"github.com/uptrace/bun"

	"github.com/handsomefox/media-tracker/internal/media"
)

// timeLayout is fixed-width so stored timestamps sort lexicographically.
const timeLayout = "2006-01-02T15:04:05.000Z07:00"

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

type itemRow struct {
	bun.BaseModel `bun:"table:tracked_items,alias:t"`

	ID             string           `bun:"id,pk"`
	UserID         string           `bun:"user_id,notnull"`
	ExternalID     int64            `bun:"external_id,notnull"`
	Kind           string           `bun:"kind,notnull"`
	Title          string           `bun:"title,notnull"`
	ImagePath      sql.Null[string] `bun:"image_path,nullzero"`
	Status         string           `bun:"status,notnull"`
	CurrentEpisode int64            `bun:"current_episode,notnull"`
	TotalEpisodes  sql.Null[int64]  `bun:"total_episodes,nullzero"`
	Rating         sql.Null[int64]  `bun:"rating,nullzero"`
	Notes          sql.Null[string] `bun:"notes,nullzero"`
	CreatedAt      string           `bun:"created_at,notnull"`
	UpdatedAt      string           `bun:"updated_at,notnull"`
}

// ListQuery filters, sorts and pages one user's entries. Zero values mean
// "no filter".
type ListQuery struct {
	Status      media.Status
	Kinds       []media.Kind
	MinRating   *int
	Search      string
	UpdatedFrom *time.Time
	UpdatedTo   *time.Time
	Sort        string
	Order       string
	Page        int
	PageSize    int
}

// Normalize clamps paging values to their defaults and bounds.
func (q ListQuery) Normalize() ListQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = DefaultPageSize
	}
	if q.PageSize > MaxPageSize {
		q.PageSize = MaxPageSize
	}
	return q
}

type ListPage struct {
	Items []media.Item
	Total int64
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		// Rows written by hand or by an older build may use RFC 3339.
		t, _ = time.Parse(time.RFC3339Nano, s)
	}
	return t.UTC()
}

func toRow(it *media.Item) itemRow {
	row := itemRow{
		ID:             it.ID,
		UserID:         it.UserID,
		ExternalID:     it.ExternalID,
		Kind:           string(it.Kind),
		Title:          it.Title,
		Status:         string(it.Status),
		CurrentEpisode: int64(it.Progress.CurrentEpisode),
		CreatedAt:      formatTime(it.CreatedAt),
		UpdatedAt:      formatTime(it.UpdatedAt),
	}
	if it.ImagePath != "" {
		row.ImagePath = sql.Null[string]{V: it.ImagePath, Valid: true}
	}
	if it.Progress.TotalEpisodes != nil {
		row.TotalEpisodes = sql.Null[int64]{V: int64(*it.Progress.TotalEpisodes), Valid: true}
	}
	if it.Rating != nil {
		row.Rating = sql.Null[int64]{V: int64(*it.Rating), Valid: true}
	}
	if it.Notes != nil {
		row.Notes = sql.Null[string]{V: *it.Notes, Valid: true}
	}
	return row
}

func (r *itemRow) item() media.Item {
	it := media.Item{
		ID:         r.ID,
		UserID:     r.UserID,
		ExternalID: r.ExternalID,
		Kind:       media.Kind(r.Kind),
		Title:      r.Title,
		ImagePath:  r.ImagePath.V,
		Status:     media.Status(r.Status),
		Progress:   media.Progress{CurrentEpisode: int(r.CurrentEpisode)},
		CreatedAt:  parseTime(r.CreatedAt),
		UpdatedAt:  parseTime(r.UpdatedAt),
	}
	if r.TotalEpisodes.Valid {
		total := int(r.TotalEpisodes.V)
		it.Progress.TotalEpisodes = &total
	}
	if r.Rating.Valid {
		rating := int(r.Rating.V)
		it.Rating = &rating
	}
	if r.Notes.Valid {
		notes := r.Notes.V
		it.Notes = &notes
	}
	return it
}

func kindStrings(kinds []media.Kind) []string {
	out := make([]string, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, string(k))
	}
	return out
}

// Add inserts a new entry. A second entry for the same user, kind and
// external id fails with media.ErrConflict.
func (s *Store) Add(ctx context.Context, it *media.Item) error {
	row := toRow(it)
	if _, err := s.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return media.Wrap(media.ErrConflict, "item already in list", nil)
		}
		return err
	}
	return nil
}

func (s *Store) Get(ctx context.Context, userID, id string) (media.Item, error) {
	var row itemRow
	err := s.db.NewSelect().
		Model(&row).
		Where("id = ?", id).
		Where("user_id = ?", userID).
		Limit(1).
		Scan(ctx)
	if isNoRows(err) {
		return media.Item{}, media.Wrap(media.ErrNotFound, "list item not found", nil)
	}
	if err != nil {
		return media.Item{}, err
	}
	return row.item(), nil
}

// FindByExternal reports the user's entry for a catalog title, if any.
func (s *Store) FindByExternal(ctx context.Context, userID string, kind media.Kind, externalID int64) (media.Item, bool, error) {
	var row itemRow
	err := s.db.NewSelect().
		Model(&row).
		Where("user_id = ?", userID).
		Where("kind = ?", string(kind)).
		Where("external_id = ?", externalID).
		Limit(1).
		Scan(ctx)
	if isNoRows(err) {
		return media.Item{}, false, nil
	}
	if err != nil {
		return media.Item{}, false, err
	}
	return row.item(), true, nil
}

func (s *Store) FindMany(ctx context.Context, userID string, query ListQuery) (ListPage, error) {
	query = query.Normalize()

	var rows []itemRow
	q := s.db.NewSelect().Model(&rows).Where("user_id = ?", userID)

	if len(query.Kinds) > 0 {
		q = q.Where("kind IN (?)", bun.In(kindStrings(query.Kinds)))
	}
	if query.Status != "" {
		q = q.Where("status = ?", string(query.Status))
	}
	if query.MinRating != nil {
		q = q.Where("rating >= ?", *query.MinRating)
	}
	if search := strings.TrimSpace(query.Search); search != "" {
		q = q.Where("LOWER(title) LIKE ? ESCAPE '!'", "%"+escapeLike(strings.ToLower(search))+"%")
	}
	if query.UpdatedFrom != nil {
		q = q.Where("updated_at >= ?", formatTime(*query.UpdatedFrom))
	}
	if query.UpdatedTo != nil {
		q = q.Where("updated_at <= ?", formatTime(*query.UpdatedTo))
	}

	total, err := q.Count(ctx)
	if err != nil {
		return ListPage{}, err
	}

	q = q.OrderExpr(orderExpr(query.Sort, query.Order)).
		OrderExpr("id ASC").
		Limit(query.PageSize).
		Offset((query.Page - 1) * query.PageSize)
	if err := q.Scan(ctx); err != nil && !isNoRows(err) {
		return ListPage{}, err
	}

	items := make([]media.Item, 0, len(rows))
	for i := range rows {
		items = append(items, rows[i].item())
	}
	return ListPage{Items: items, Total: int64(total)}, nil
}

func orderExpr(sort, order string) string {
	dir := "DESC"
	if strings.EqualFold(strings.TrimSpace(order), "asc") {
		dir = "ASC"
	}
	switch strings.TrimSpace(sort) {
	case "createdAt":
		return "created_at " + dir
	case "title":
		return "title COLLATE NOCASE " + dir
	case "rating":
		return "rating " + dir
	case "status":
		return "status " + dir
	case "progress":
		return "current_episode " + dir
	default:
		return "updated_at " + dir
	}
}

func escapeLike(s string) string {
	r := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
	return r.Replace(s)
}

// Update writes the mutable fields of it back to the owned row.
func (s *Store) Update(ctx context.Context, userID, id string, it *media.Item) error {
	row := toRow(it)
	res, err := s.db.NewUpdate().
		Table("tracked_items").
		Set("status = ?", row.Status).
		Set("current_episode = ?", row.CurrentEpisode).
		Set("total_episodes = ?", row.TotalEpisodes).
		Set("rating = ?", row.Rating).
		Set("notes = ?", row.Notes).
		Set("updated_at = ?", row.UpdatedAt).
		Where("id = ?", id).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return err
	}
	_, err = expectRowsAffected(res)
	return err
}

func (s *Store) DeleteByID(ctx context.Context, userID, id string) error {
	res, err := s.db.NewDelete().
		Table("tracked_items").
		Where("id = ?", id).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return err
	}
	_, err = expectRowsAffected(res)
	return err
}

// DeleteAll removes every entry of the given kinds and returns how many went.
func (s *Store) DeleteAll(ctx context.Context, userID string, kinds []media.Kind) (int64, error) {
	q := s.db.NewDelete().
		Table("tracked_items").
		Where("user_id = ?", userID)
	if len(kinds) > 0 {
		q = q.Where("kind IN (?)", bun.In(kindStrings(kinds)))
	}
	res, err := q.Exec(ctx)
	if err != nil {
		return 0, err
	}
	return expectRowsAffected(res)
}

// BulkUpdateStatus sets status on the listed entries the user owns. Unknown
// ids are skipped; the result is the number of rows changed.
func (s *Store) BulkUpdateStatus(ctx context.Context, userID string, kinds []media.Kind, ids []string, status media.Status, now time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	q := s.db.NewUpdate().
		Table("tracked_items").
		Set("status = ?", string(status)).
		Set("updated_at = ?", formatTime(now)).
		Where("user_id = ?", userID).
		Where("id IN (?)", bun.In(ids))
	if len(kinds) > 0 {
		q = q.Where("kind IN (?)", bun.In(kindStrings(kinds)))
	}
	res, err := q.Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type groupCount struct {
	Key string `bun:"key"`
	N   int64  `bun:"n"`
}

func (s *Store) Stats(ctx context.Context, userID string, kinds []media.Kind) (media.Stats, error) {
	stats := media.EmptyStats()

	scoped := func(q *bun.SelectQuery) *bun.SelectQuery {
		q = q.TableExpr("tracked_items").Where("user_id = ?", userID)
		if len(kinds) > 0 {
			q = q.Where("kind IN (?)", bun.In(kindStrings(kinds)))
		}
		return q
	}

	var (
		total     int64
		avg       sql.Null[float64]
		completed int64
		episodes  int64
	)
	err := s.db.NewSelect().
		Apply(scoped).
		ColumnExpr("COUNT(*)").
		ColumnExpr("AVG(rating)").
		ColumnExpr("COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0)", string(media.StatusCompleted)).
		ColumnExpr("COALESCE(SUM(current_episode), 0)").
		Scan(ctx, &total, &avg, &completed, &episodes)
	if err != nil {
		return media.Stats{}, err
	}
	stats.TotalItems = total
	stats.CompletedCount = completed
	stats.TotalEpisodes = episodes
	if avg.Valid {
		stats.AvgRating = math.Round(avg.V*10) / 10
	}
	if total == 0 {
		return stats, nil
	}

	var byStatus []groupCount
	if err := s.db.NewSelect().
		Apply(scoped).
		ColumnExpr("status AS key").
		ColumnExpr("COUNT(*) AS n").
		GroupExpr("status").
		Scan(ctx, &byStatus); err != nil {
		return media.Stats{}, err
	}
	for _, g := range byStatus {
		stats.ByStatus[media.Status(g.Key)] = g.N
	}

	var byKind []groupCount
	if err := s.db.NewSelect().
		Apply(scoped).
		ColumnExpr("kind AS key").
		ColumnExpr("COUNT(*) AS n").
		GroupExpr("kind").
		Scan(ctx, &byKind); err != nil {
		return media.Stats{}, err
	}
	for _, g := range byKind {
		stats.ByKind[media.Kind(g.Key)] = g.N
	}
	return stats, nil
}

// Membership resolves which of refs the user already tracks, in one query.
func (s *Store) Membership(ctx context.Context, userID string, refs []media.Ref) (out map[media.Ref]media.Status, err error) {
	out = make(map[media.Ref]media.Status, len(refs))
	if userID == "" || len(refs) == 0 {
		return out, nil
	}

	seen := make(map[media.Ref]struct{}, len(refs))
	var uniq []media.Ref
	for _, ref := range refs {
		if ref.ExternalID == 0 || !ref.Kind.Valid() {
			continue
		}
		if _, ok := seen[ref]; ok {
			continue
		}
		seen[ref] = struct{}{}
		uniq = append(uniq, ref)
	}
	if len(uniq) == 0 {
		return out, nil
	}

	var found []struct {
		ExternalID int64  `bun:"external_id"`
		Kind       string `bun:"kind"`
		Status     string `bun:"status"`
	}
	err = s.db.NewSelect().
		Table("tracked_items").
		Column("external_id", "kind", "status").
		Where("user_id = ?", userID).
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			for i, ref := range uniq {
				if i == 0 {
					q = q.Where("kind = ? AND external_id = ?", string(ref.Kind), ref.ExternalID)
					continue
				}
				q = q.WhereOr("kind = ? AND external_id = ?", string(ref.Kind), ref.ExternalID)
			}
			return q
		}).
		Scan(ctx, &found)
	if err != nil {
		return nil, err
	}

	for _, f := range found {
		out[media.Ref{Kind: media.Kind(f.Kind), ExternalID: f.ExternalID}] = media.Status(f.Status)
	}
	return out, nil
}
