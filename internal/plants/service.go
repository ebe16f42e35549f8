// Package plants implements the moderation workflow over submitted plant
// records: intake, accept/reject transitions, administrative edits,
// listing and aggregate counts.
package plants

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbutil "github.com/herbario-app/herbario/internal/db"
	"github.com/herbario-app/herbario/internal/models"
)

// ErrNotFound indicates the addressed record does not exist.
var ErrNotFound = errors.New("plant not found")

// Service runs moderation operations against the record store.
type Service struct {
	db *gorm.DB
}

// NewService wires the moderation service with its database dependency.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// SubmissionInput carries the descriptive fields of a new submission.
// Nil fields were not supplied.
type SubmissionInput struct {
	Name           *string
	ScientificName *string
	Family         *string
	Description    *string
	Latitude       *float64
	Longitude      *float64
}

// ImageInput carries an optional photo attached to a submission.
type ImageInput struct {
	MimeType string
	Data     []byte
}

// CreateSubmission stores a new record in pending status, together with its
// image when one was uploaded. Record and image are persisted atomically.
// Any status supplied by the client is not consulted: submissions always
// enter the workflow as pending.
func (s *Service) CreateSubmission(ctx context.Context, in SubmissionInput, image *ImageInput) (*models.Plant, error) {
	name := in.Name
	if name == nil || strings.TrimSpace(*name) == "" {
		name = in.ScientificName
	}

	plant := models.Plant{
		ID:             uuid.NewString(),
		Name:           name,
		ScientificName: in.ScientificName,
		Family:         in.Family,
		Description:    in.Description,
		Latitude:       in.Latitude,
		Longitude:      in.Longitude,
		Status:         models.StatusPending,
	}

	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if errCreate := tx.Create(&plant).Error; errCreate != nil {
			return fmt.Errorf("create submission: %w", errCreate)
		}
		if image != nil && len(image.Data) > 0 {
			mime := strings.TrimSpace(image.MimeType)
			if mime == "" {
				mime = "application/octet-stream"
			}
			img := models.PlantImage{PlantID: plant.ID, MimeType: mime, Data: image.Data}
			if errImage := tx.Create(&img).Error; errImage != nil {
				return fmt.Errorf("attach image: %w", errImage)
			}
		}
		return nil
	})
	if errTx != nil {
		return nil, errTx
	}
	return &plant, nil
}

// Accept transitions a record to accepted, attributing the acting admin
// when a valid identity is supplied. Records in any state may be accepted;
// re-moderation overwrites the previous attribution.
func (s *Service) Accept(ctx context.Context, id, actorID string) (*models.Plant, error) {
	changes := map[string]any{"status": models.StatusAccepted}
	if _, errParse := uuid.Parse(actorID); errParse == nil {
		changes["accepted_by"] = actorID
	}
	return s.transition(ctx, id, changes)
}

// Reject transitions a record to rejected, attributing the acting admin
// when a valid identity is supplied.
func (s *Service) Reject(ctx context.Context, id, actorID string) (*models.Plant, error) {
	changes := map[string]any{"status": models.StatusRejected}
	if _, errParse := uuid.Parse(actorID); errParse == nil {
		changes["rejected_by"] = actorID
	}
	return s.transition(ctx, id, changes)
}

// transition applies a status change to an existing record.
func (s *Service) transition(ctx context.Context, id string, changes map[string]any) (*models.Plant, error) {
	plant, errGet := s.GetByID(ctx, id)
	if errGet != nil {
		return nil, errGet
	}
	if errUpdate := s.db.WithContext(ctx).Model(plant).Updates(changes).Error; errUpdate != nil {
		return nil, fmt.Errorf("apply transition: %w", errUpdate)
	}
	return s.GetByID(ctx, id)
}

// Changes carries the fields of a partial administrative update. Nil fields
// are left untouched. Status, when present, overrides the workflow directly
// without attribution.
type Changes struct {
	Name           *string
	Family         *string
	ScientificName *string
	Description    *string
	Latitude       *float64
	Longitude      *float64
	Status         *string
}

// Update mutates only the supplied fields of an existing record. An empty
// change set is a no-op that returns the current record.
func (s *Service) Update(ctx context.Context, id string, ch Changes) (*models.Plant, error) {
	plant, errGet := s.GetByID(ctx, id)
	if errGet != nil {
		return nil, errGet
	}

	changes := map[string]any{}
	if ch.Name != nil {
		changes["name"] = *ch.Name
	}
	if ch.Family != nil {
		changes["family"] = *ch.Family
	}
	if ch.ScientificName != nil {
		changes["scientific_name"] = *ch.ScientificName
	}
	if ch.Description != nil {
		changes["description"] = *ch.Description
	}
	if ch.Latitude != nil {
		changes["latitude"] = *ch.Latitude
	}
	if ch.Longitude != nil {
		changes["longitude"] = *ch.Longitude
	}
	if ch.Status != nil && models.ValidStatus(*ch.Status) {
		changes["status"] = *ch.Status
	}
	if len(changes) == 0 {
		return plant, nil
	}

	if errUpdate := s.db.WithContext(ctx).Model(plant).Updates(changes).Error; errUpdate != nil {
		return nil, fmt.Errorf("update plant: %w", errUpdate)
	}
	return s.GetByID(ctx, id)
}

// Remove permanently deletes a record and its image.
func (s *Service) Remove(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if errImage := tx.Where("plant_id = ?", id).Delete(&models.PlantImage{}).Error; errImage != nil {
			return fmt.Errorf("delete image: %w", errImage)
		}
		res := tx.Where("id = ?", id).Delete(&models.Plant{})
		if res.Error != nil {
			return fmt.Errorf("delete plant: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// GetByID fetches a single record.
func (s *Service) GetByID(ctx context.Context, id string) (*models.Plant, error) {
	var plant models.Plant
	errFind := s.db.WithContext(ctx).Where("id = ?", id).First(&plant).Error
	if errors.Is(errFind, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if errFind != nil {
		return nil, fmt.Errorf("get plant: %w", errFind)
	}
	return &plant, nil
}

// GetImage fetches the stored photo of a record.
func (s *Service) GetImage(ctx context.Context, id string) (*models.PlantImage, error) {
	var img models.PlantImage
	errFind := s.db.WithContext(ctx).Where("plant_id = ?", id).First(&img).Error
	if errors.Is(errFind, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if errFind != nil {
		return nil, fmt.Errorf("get image: %w", errFind)
	}
	return &img, nil
}

// ListFilter selects and paginates records.
type ListFilter struct {
	Status   string // Exact status, empty for all.
	Query    string // Case-insensitive substring over name, scientific name, family.
	Family   string // Exact family.
	Page     int    // 1-based.
	PageSize int
}

// Normalize clamps pagination to the allowed bounds.
func (f *ListFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = 20
	}
	if f.PageSize > 100 {
		f.PageSize = 100
	}
}

// List returns one page of matching records plus the total match count
// computed independently of the pagination window.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]models.Plant, int64, error) {
	filter.Normalize()

	base := s.filtered(ctx, filter)

	var total int64
	if errCount := base.Model(&models.Plant{}).Count(&total).Error; errCount != nil {
		return nil, 0, fmt.Errorf("count plants: %w", errCount)
	}

	var items []models.Plant
	offset := (filter.Page - 1) * filter.PageSize
	errFind := s.filtered(ctx, filter).
		Order("created_at DESC").
		Limit(filter.PageSize).
		Offset(offset).
		Find(&items).Error
	if errFind != nil {
		return nil, 0, fmt.Errorf("list plants: %w", errFind)
	}
	return items, total, nil
}

// filtered builds the WHERE clause shared by List and its count.
func (s *Service) filtered(ctx context.Context, filter ListFilter) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&models.Plant{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Family != "" {
		query = query.Where("family = ?", filter.Family)
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		pattern := dbutil.NormalizeLikePattern(s.db, "%"+q+"%")
		clause := fmt.Sprintf("%s OR %s OR %s",
			dbutil.CaseInsensitiveLikeExpr(s.db, "name"),
			dbutil.CaseInsensitiveLikeExpr(s.db, "scientific_name"),
			dbutil.CaseInsensitiveLikeExpr(s.db, "family"),
		)
		query = query.Where(clause, pattern, pattern, pattern)
	}
	return query
}

// StatusCounts aggregates record counts per moderation status.
type StatusCounts struct {
	Pending  int64 `json:"pending"`
	Accepted int64 `json:"accepted"`
	Rejected int64 `json:"rejected"`
}

// CountByStatus returns record counts grouped by status.
func (s *Service) CountByStatus(ctx context.Context) (StatusCounts, error) {
	type row struct {
		Status string
		N      int64
	}
	var rows []row
	errFind := s.db.WithContext(ctx).
		Model(&models.Plant{}).
		Select("status, COUNT(*) AS n").
		Group("status").
		Find(&rows).Error
	if errFind != nil {
		return StatusCounts{}, fmt.Errorf("count by status: %w", errFind)
	}

	var counts StatusCounts
	for _, r := range rows {
		switch r.Status {
		case models.StatusPending:
			counts.Pending = r.N
		case models.StatusAccepted:
			counts.Accepted = r.N
		case models.StatusRejected:
			counts.Rejected = r.N
		}
	}
	return counts, nil
}

// CountPending returns the number of records awaiting moderation.
func (s *Service) CountPending(ctx context.Context) (int64, error) {
	var total int64
	errCount := s.db.WithContext(ctx).
		Model(&models.Plant{}).
		Where("status = ?", models.StatusPending).
		Count(&total).Error
	if errCount != nil {
		return 0, fmt.Errorf("count pending: %w", errCount)
	}
	return total, nil
}
