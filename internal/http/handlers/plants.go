package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/herbario-app/herbario/internal/apperr"
	httpapi "github.com/herbario-app/herbario/internal/http"
	"github.com/herbario-app/herbario/internal/models"
	"github.com/herbario-app/herbario/internal/plants"
)

// imageField is the multipart field name carrying the submitted photo.
const imageField = "imagen"

var digitsPattern = regexp.MustCompile(`^\d+$`)

// submissionFields are the form/JSON fields a public submission may carry.
var submissionFields = map[string]bool{
	"name":            true,
	"scientific_name": true,
	"family":          true,
	"description":     true,
	"latitude":        true,
	"longitude":       true,
}

// updateFields additionally allow the administrative status override.
var updateFields = map[string]bool{
	"name":            true,
	"family":          true,
	"scientific_name": true,
	"description":     true,
	"latitude":        true,
	"longitude":       true,
	"status":          true,
}

// PlantHandler handles submission intake and moderation endpoints.
type PlantHandler struct {
	svc            *plants.Service
	storageTimeout time.Duration
}

// NewPlantHandler wires a plant handler with the moderation service.
func NewPlantHandler(svc *plants.Service, storageTimeout time.Duration) *PlantHandler {
	return &PlantHandler{svc: svc, storageTimeout: storageTimeout}
}

// fieldValues is a parsed request body: field name to raw value.
type fieldValues map[string]any

// parseSubmissionBody decodes either a multipart form or a JSON object.
func (h *PlantHandler) parseSubmissionBody(c *gin.Context) (fieldValues, *plants.ImageInput, error) {
	contentType := c.ContentType()
	if strings.HasPrefix(contentType, "multipart/form-data") {
		form, errForm := c.MultipartForm()
		if errForm != nil {
			return nil, nil, apperr.Validation("request body is not a valid multipart form")
		}
		values := fieldValues{}
		for key, fieldVals := range form.Value {
			if len(fieldVals) > 0 {
				values[key] = fieldVals[0]
			}
		}
		for key := range form.File {
			if key != imageField {
				return nil, nil, apperr.Validation(fmt.Sprintf("field not allowed: %s", key))
			}
		}

		var image *plants.ImageInput
		if files := form.File[imageField]; len(files) > 0 {
			fileHeader := files[0]
			file, errOpen := fileHeader.Open()
			if errOpen != nil {
				return nil, nil, apperr.Internal(errOpen)
			}
			defer func() { _ = file.Close() }()
			data, errRead := io.ReadAll(file)
			if errRead != nil {
				return nil, nil, apperr.Internal(errRead)
			}
			image = &plants.ImageInput{
				MimeType: fileHeader.Header.Get("Content-Type"),
				Data:     data,
			}
		}
		return values, image, nil
	}

	values := fieldValues{}
	if c.Request.ContentLength > 0 {
		if errBind := c.ShouldBindJSON(&values); errBind != nil {
			return nil, nil, apperr.Validation("request body is not a valid JSON object")
		}
	}
	return values, nil, nil
}

// textField extracts an optional text field, rejecting non-string values.
func textField(values fieldValues, key string, errs *[]string) *string {
	raw, present := values[key]
	if !present || raw == nil {
		return nil
	}
	text, ok := raw.(string)
	if !ok {
		*errs = append(*errs, fmt.Sprintf("%s must be a string", key))
		return nil
	}
	return &text
}

// coordField extracts an optional coordinate, accepting JSON numbers and
// numeric strings. The value must be finite.
func coordField(values fieldValues, key string, errs *[]string) *float64 {
	raw, present := values[key]
	if !present || raw == nil {
		return nil
	}
	switch v := raw.(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			*errs = append(*errs, fmt.Sprintf("%s must be numeric", key))
			return nil
		}
		return &v
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return nil
		}
		parsed, errParse := strconv.ParseFloat(trimmed, 64)
		if errParse != nil || math.IsNaN(parsed) || math.IsInf(parsed, 0) {
			*errs = append(*errs, fmt.Sprintf("%s must be numeric", key))
			return nil
		}
		return &parsed
	default:
		*errs = append(*errs, fmt.Sprintf("%s must be numeric", key))
		return nil
	}
}

// Submit receives a public submission and stores it as pending. Clients
// cannot choose any other initial status.
func (h *PlantHandler) Submit(c *gin.Context) {
	values, image, errParse := h.parseSubmissionBody(c)
	if errParse != nil {
		httpapi.Fail(c, errParse)
		return
	}

	var details []string
	for key := range values {
		if !submissionFields[key] {
			details = append(details, fmt.Sprintf("field not allowed: %s", key))
		}
	}

	input := plants.SubmissionInput{
		Name:           textField(values, "name", &details),
		ScientificName: textField(values, "scientific_name", &details),
		Family:         textField(values, "family", &details),
		Description:    textField(values, "description", &details),
		Latitude:       coordField(values, "latitude", &details),
		Longitude:      coordField(values, "longitude", &details),
	}
	if emptyText(input.Name) && emptyText(input.ScientificName) {
		details = append(details, "name or scientific_name is required")
	}
	if len(details) > 0 {
		httpapi.Fail(c, apperr.Validation(details...))
		return
	}

	ctx, cancel := storageContext(c, h.storageTimeout)
	defer cancel()

	plant, errCreate := h.svc.CreateSubmission(ctx, input, image)
	if errCreate != nil {
		httpapi.Fail(c, apperr.Internal(errCreate))
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": formatPlant(plant)})
}

func emptyText(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}

// listQueryFields are the parameters the listing endpoint accepts.
var listQueryFields = map[string]bool{
	"status":   true,
	"q":        true,
	"family":   true,
	"page":     true,
	"pageSize": true,
}

// List returns one page of records. The access-control gate in front of
// this handler has already applied the two-tier listing rule.
func (h *PlantHandler) List(c *gin.Context) {
	var details []string
	query := c.Request.URL.Query()
	for key := range query {
		if !listQueryFields[key] {
			details = append(details, fmt.Sprintf("parameter not allowed: %s", key))
		}
	}
	status := strings.TrimSpace(c.Query("status"))
	if status != "" && !models.ValidStatus(status) {
		details = append(details, "status must be one of pending, accepted, rejected")
	}
	page, pageDetails := parsePageParam(c.Query("page"), "page", 1, 0)
	pageSize, sizeDetails := parsePageParam(c.Query("pageSize"), "pageSize", 1, 100)
	details = append(details, pageDetails...)
	details = append(details, sizeDetails...)
	if len(details) > 0 {
		httpapi.Fail(c, apperr.Validation(details...))
		return
	}

	filter := plants.ListFilter{
		Status:   status,
		Query:    strings.TrimSpace(c.Query("q")),
		Family:   strings.TrimSpace(c.Query("family")),
		Page:     page,
		PageSize: pageSize,
	}
	filter.Normalize()

	ctx, cancel := storageContext(c, h.storageTimeout)
	defer cancel()

	items, total, errList := h.svc.List(ctx, filter)
	if errList != nil {
		httpapi.Fail(c, apperr.Internal(errList))
		return
	}

	data := make([]plantResponse, 0, len(items))
	for i := range items {
		data = append(data, formatPlant(&items[i]))
	}
	totalPages := (total + int64(filter.PageSize) - 1) / int64(filter.PageSize)
	if totalPages < 1 {
		totalPages = 1
	}
	c.JSON(http.StatusOK, gin.H{
		"data": data,
		"pagination": gin.H{
			"page":       filter.Page,
			"pageSize":   filter.PageSize,
			"total":      total,
			"totalPages": totalPages,
		},
	})
}

// parsePageParam validates a positive-integer query parameter. A zero max
// disables the upper bound. Returns 0 when the parameter is absent.
func parsePageParam(raw, name string, min, max int) (int, []string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	if !digitsPattern.MatchString(raw) {
		return 0, []string{fmt.Sprintf("%s must be a positive integer", name)}
	}
	value, errParse := strconv.Atoi(raw)
	if errParse != nil || value < min || (max > 0 && value > max) {
		if max > 0 {
			return 0, []string{fmt.Sprintf("%s must be between %d and %d", name, min, max)}
		}
		return 0, []string{fmt.Sprintf("%s must be at least %d", name, min)}
	}
	return value, nil
}

// Accept transitions a record to accepted, attributing the acting admin.
func (h *PlantHandler) Accept(c *gin.Context) {
	h.transition(c, h.svc.Accept)
}

// Reject transitions a record to rejected, attributing the acting admin.
func (h *PlantHandler) Reject(c *gin.Context) {
	h.transition(c, h.svc.Reject)
}

func (h *PlantHandler) transition(c *gin.Context, apply func(ctx context.Context, id, actor string) (*models.Plant, error)) {
	ctx, cancel := storageContext(c, h.storageTimeout)
	defer cancel()

	plant, errApply := apply(ctx, c.Param("id"), getUserID(c))
	if errors.Is(errApply, plants.ErrNotFound) {
		httpapi.Fail(c, apperr.NotFound("plant not found"))
		return
	}
	if errApply != nil {
		httpapi.Fail(c, apperr.Internal(errApply))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": formatPlant(plant)})
}

// Update applies a partial administrative edit, including direct status
// overrides.
func (h *PlantHandler) Update(c *gin.Context) {
	values := fieldValues{}
	if errBind := c.ShouldBindJSON(&values); errBind != nil {
		httpapi.Fail(c, apperr.Validation("request body is not a valid JSON object"))
		return
	}

	var details []string
	if len(values) == 0 {
		details = append(details, "no changes to update")
	}
	for key := range values {
		if !updateFields[key] {
			details = append(details, fmt.Sprintf("field not allowed: %s", key))
		}
	}

	changes := plants.Changes{
		Name:           textField(values, "name", &details),
		Family:         textField(values, "family", &details),
		ScientificName: textField(values, "scientific_name", &details),
		Description:    textField(values, "description", &details),
		Latitude:       coordField(values, "latitude", &details),
		Longitude:      coordField(values, "longitude", &details),
	}
	if status := textField(values, "status", &details); status != nil {
		if !models.ValidStatus(*status) {
			details = append(details, "status must be one of pending, accepted, rejected")
		} else {
			changes.Status = status
		}
	}
	if len(details) > 0 {
		httpapi.Fail(c, apperr.Validation(details...))
		return
	}

	ctx, cancel := storageContext(c, h.storageTimeout)
	defer cancel()

	plant, errUpdate := h.svc.Update(ctx, c.Param("id"), changes)
	if errors.Is(errUpdate, plants.ErrNotFound) {
		httpapi.Fail(c, apperr.NotFound("plant not found"))
		return
	}
	if errUpdate != nil {
		httpapi.Fail(c, apperr.Internal(errUpdate))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": formatPlant(plant)})
}

// Delete removes a record permanently.
func (h *PlantHandler) Delete(c *gin.Context) {
	ctx, cancel := storageContext(c, h.storageTimeout)
	defer cancel()

	errRemove := h.svc.Remove(ctx, c.Param("id"))
	if errors.Is(errRemove, plants.ErrNotFound) {
		httpapi.Fail(c, apperr.NotFound("plant not found"))
		return
	}
	if errRemove != nil {
		httpapi.Fail(c, apperr.Internal(errRemove))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "deleted"})
}

// Count reports record counts per moderation status.
func (h *PlantHandler) Count(c *gin.Context) {
	ctx, cancel := storageContext(c, h.storageTimeout)
	defer cancel()

	counts, errCount := h.svc.CountByStatus(ctx)
	if errCount != nil {
		httpapi.Fail(c, apperr.Internal(errCount))
		return
	}
	c.JSON(http.StatusOK, counts)
}

// CountPending reports the public pending-submission counter.
func (h *PlantHandler) CountPending(c *gin.Context) {
	ctx, cancel := storageContext(c, h.storageTimeout)
	defer cancel()

	pending, errCount := h.svc.CountPending(ctx)
	if errCount != nil {
		httpapi.Fail(c, apperr.Internal(errCount))
		return
	}
	c.JSON(http.StatusOK, gin.H{"pending": pending})
}

// Image streams the stored photo with its original content type.
func (h *PlantHandler) Image(c *gin.Context) {
	ctx, cancel := storageContext(c, h.storageTimeout)
	defer cancel()

	img, errGet := h.svc.GetImage(ctx, c.Param("id"))
	if errors.Is(errGet, plants.ErrNotFound) {
		httpapi.Fail(c, apperr.NotFound("image not found"))
		return
	}
	if errGet != nil {
		httpapi.Fail(c, apperr.Internal(errGet))
		return
	}
	c.Header("Cache-Control", "public, max-age=600")
	c.Data(http.StatusOK, img.MimeType, img.Data)
}
