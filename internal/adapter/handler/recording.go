package handler

import (
	"mime/multipart"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	apperrors "github.com/johnquangdev/call-insight/errors"
	recordingDTO "github.com/johnquangdev/call-insight/internal/adapter/dto/recording"
	"github.com/johnquangdev/call-insight/internal/domain/entities"
	"github.com/johnquangdev/call-insight/internal/usecase/analysis"
	"github.com/johnquangdev/call-insight/internal/usecase/recording"
	"github.com/johnquangdev/call-insight/internal/usecase/transcription"
)

// Multipart field names accepted for the audio file.
const (
	uploadField      = "audio"
	uploadFieldAlias = "file"
)

var recordingSortable = []string{"createdAt", "title", "duration", "fileSize", "status"}

// Recording handles recording, transcription and analysis endpoints
type Recording struct {
	recordings *recording.Service
	analyses   *analysis.Service
	maxUpload  int64
	logger     *zap.Logger
}

// NewRecording creates a new recording handler. maxUpload is the largest
// accepted file in bytes.
func NewRecording(recordings *recording.Service, analyses *analysis.Service, maxUpload int64, logger *zap.Logger) *Recording {
	return &Recording{recordings: recordings, analyses: analyses, maxUpload: maxUpload, logger: logger}
}

// Upload godoc
// @Summary      Upload a call recording
// @Description  Multipart upload with a single file in field "audio" ("file" also accepted). mp3, wav, m4a or ogg.
// @Tags         Recordings
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        audio        formData  file    true   "Audio file"
// @Param        title        formData  string  false  "Title (defaults to the file name)"
// @Param        description  formData  string  false  "Description"
// @Success      201          {object}  common.SuccessResponse{data=entities.Recording}
// @Failure      400          {object}  common.ErrorResponse
// @Failure      413          {object}  common.ErrorResponse
// @Router       /recordings [post]
func (h *Recording) Upload(c echo.Context) error {
	caller, err := currentUser(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	header, err := h.uploadedFile(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	if h.maxUpload > 0 && header.Size > h.maxUpload {
		return HandleError(h.logger, c, apperrors.ErrRecordingTooLarge(h.maxUpload))
	}

	file, err := header.Open()
	if err != nil {
		return HandleError(h.logger, c, apperrors.ErrInvalidArgument("Unable to read uploaded file"))
	}
	defer file.Close()

	in := recording.UploadInput{
		Title:    c.FormValue("title"),
		FileName: header.Filename,
		MimeType: entities.ResolveAudioType(header.Header.Get(echo.HeaderContentType), header.Filename),
		Size:     header.Size,
		Body:     file,
	}
	if desc := strings.TrimSpace(c.FormValue("description")); desc != "" {
		in.Description = &desc
	}

	rec, err := h.recordings.Upload(c.Request().Context(), caller, in)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleCreated(h.logger, c, rec)
}

// uploadedFile returns the single audio part of the form.
func (h *Recording) uploadedFile(c echo.Context) (*multipart.FileHeader, error) {
	form, err := c.MultipartForm()
	if err != nil {
		if strings.Contains(err.Error(), "request body too large") {
			return nil, apperrors.ErrRecordingTooLarge(h.maxUpload)
		}
		return nil, apperrors.ErrInvalidArgument("Expected a multipart/form-data body")
	}
	files := make([]*multipart.FileHeader, 0, 1)
	files = append(files, form.File[uploadField]...)
	files = append(files, form.File[uploadFieldAlias]...)
	switch len(files) {
	case 0:
		return nil, apperrors.ErrInvalidArgument("Audio file is required").WithDetail(uploadField, "required")
	case 1:
		return files[0], nil
	default:
		return nil, apperrors.ErrInvalidArgument("Only one audio file may be uploaded").WithDetail(uploadField, "max=1")
	}
}

// List godoc
// @Summary      List recordings
// @Description  Members only see their own recordings.
// @Tags         Recordings
// @Produce      json
// @Security     BearerAuth
// @Param        page    query     int     false  "Page"
// @Param        limit   query     int     false  "Page size (max 100)"
// @Param        sortBy  query     string  false  "createdAt, title, duration, fileSize or status"
// @Param        order   query     string  false  "asc or desc"
// @Param        status  query     string  false  "UPLOADED, TRANSCRIBING, ANALYZING, COMPLETED or FAILED"
// @Param        search  query     string  false  "Title search"
// @Param        userId  query     string  false  "Owner (admins and managers)"
// @Success      200     {object}  common.SuccessResponse{data=common.ListResponse}
// @Router       /recordings [get]
func (h *Recording) List(c echo.Context) error {
	caller, err := currentUser(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	page, err := parsePage(c, recordingSortable...)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	var q recordingDTO.ListQuery
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &q); err != nil {
		return HandleError(h.logger, c, apperrors.ErrInvalidArgument("Invalid query parameters"))
	}
	if err := c.Validate(&q); err != nil {
		return HandleError(h.logger, c, err)
	}

	in := recording.ListInput{Filters: page.Filters, Search: q.Search}
	if q.Status != "" {
		status := entities.RecordingStatus(q.Status)
		in.Status = &status
	}
	if q.UserID != "" {
		id := uuid.MustParse(q.UserID)
		in.UserID = &id
	}

	items, total, err := h.recordings.List(c.Request().Context(), caller, in)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleList(h.logger, c, items, page, total)
}

// Get godoc
// @Summary      Get a recording
// @Tags         Recordings
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Recording ID"
// @Success      200  {object}  common.SuccessResponse{data=entities.Recording}
// @Failure      404  {object}  common.ErrorResponse
// @Router       /recordings/{id} [get]
func (h *Recording) Get(c echo.Context) error {
	caller, id, err := h.target(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	rec, err := h.recordings.Get(c.Request().Context(), caller, id)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, rec)
}

// Update godoc
// @Summary      Update recording details
// @Tags         Recordings
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string                               true  "Recording ID"
// @Param        body  body      recordingDTO.UpdateRecordingRequest  true  "Fields to change"
// @Success      200   {object}  common.SuccessResponse{data=entities.Recording}
// @Router       /recordings/{id} [put]
func (h *Recording) Update(c echo.Context) error {
	caller, id, err := h.target(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	var req recordingDTO.UpdateRecordingRequest
	if err := bindAndValidate(c, &req); err != nil {
		return HandleError(h.logger, c, err)
	}
	metadata, err := jsonObject(req.Metadata, "metadata")
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	rec, err := h.recordings.Update(c.Request().Context(), caller, id, recording.UpdateInput{
		Title:       req.Title,
		Description: req.Description,
		Metadata:    metadata,
	})
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, rec)
}

// Delete godoc
// @Summary      Delete a recording
// @Description  Removes the recording, its transcription and analysis. The audio blob is deleted best effort.
// @Tags         Recordings
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Recording ID"
// @Success      200  {object}  common.SuccessResponse
// @Router       /recordings/{id} [delete]
func (h *Recording) Delete(c echo.Context) error {
	caller, id, err := h.target(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	if err := h.recordings.Delete(c.Request().Context(), caller, id); err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleMessage(h.logger, c, "Recording deleted")
}

// URL godoc
// @Summary      Presigned playback URL
// @Tags         Recordings
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Recording ID"
// @Success      200  {object}  common.SuccessResponse{data=recording.PlaybackURL}
// @Failure      503  {object}  common.ErrorResponse
// @Router       /recordings/{id}/url [get]
func (h *Recording) URL(c echo.Context) error {
	caller, id, err := h.target(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	url, err := h.recordings.URL(c.Request().Context(), caller, id)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, url)
}

// transcribeResponse is returned by Transcribe.
type transcribeResponse struct {
	Recording     *entities.Recording     `json:"recording"`
	Transcription *entities.Transcription `json:"transcription"`
	Attempts      int                     `json:"attempts"`
	Fallback      bool                    `json:"fallback"`
}

// Transcribe godoc
// @Summary      Transcribe a recording
// @Description  Runs speech recognition synchronously, retrying with backoff. Falls back to a mock transcript when no provider is configured.
// @Tags         Recordings
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string                          true   "Recording ID"
// @Param        body  body      recordingDTO.TranscribeRequest  false  "Options"
// @Success      200   {object}  common.SuccessResponse{data=transcribeResponse}
// @Failure      409   {object}  common.ErrorResponse
// @Router       /recordings/{id}/transcribe [post]
func (h *Recording) Transcribe(c echo.Context) error {
	caller, id, err := h.target(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	var req recordingDTO.TranscribeRequest
	if c.Request().ContentLength > 0 {
		if err := bindAndValidate(c, &req); err != nil {
			return HandleError(h.logger, c, err)
		}
	}

	requestID := getRequestID(c)
	res, err := h.recordings.Transcribe(c.Request().Context(), caller, id, transcription.Options{
		Language:     req.Language,
		SpeakerCount: req.SpeakerCount,
		Progress: func(percent int, stage string) {
			if h.logger != nil {
				h.logger.Debug("transcription.progress",
					zap.String("request_id", requestID),
					zap.String("recording_id", id.String()),
					zap.Int("percent", percent),
					zap.String("stage", stage))
			}
		},
	})
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, transcribeResponse{
		Recording:     res.Recording,
		Transcription: res.Transcription,
		Attempts:      res.Attempts,
		Fallback:      res.Fallback,
	})
}

// Transcription godoc
// @Summary      Get the transcription of a recording
// @Tags         Recordings
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Recording ID"
// @Success      200  {object}  common.SuccessResponse{data=entities.Transcription}
// @Failure      404  {object}  common.ErrorResponse
// @Router       /recordings/{id}/transcription [get]
func (h *Recording) Transcription(c echo.Context) error {
	caller, id, err := h.target(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	t, err := h.recordings.Transcription(c.Request().Context(), caller, id)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, t)
}

// Analyze godoc
// @Summary      Analyze a transcribed recording
// @Description  Scores sentiment, process adherence and opportunities against a process template.
// @Tags         Recordings
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string                       true   "Recording ID"
// @Param        body  body      recordingDTO.AnalyzeRequest  false  "Template"
// @Success      200   {object}  common.SuccessResponse{data=entities.AnalysisResult}
// @Failure      400   {object}  common.ErrorResponse
// @Router       /recordings/{id}/analysis [post]
func (h *Recording) Analyze(c echo.Context) error {
	caller, id, err := h.target(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	var req recordingDTO.AnalyzeRequest
	if c.Request().ContentLength > 0 {
		if err := bindAndValidate(c, &req); err != nil {
			return HandleError(h.logger, c, err)
		}
	}
	var templateID *uuid.UUID
	if req.TemplateID != "" {
		tid := uuid.MustParse(req.TemplateID)
		templateID = &tid
	}

	result, err := h.analyses.Analyze(c.Request().Context(), caller, id, templateID)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, result)
}

// Analysis godoc
// @Summary      Get the analysis of a recording
// @Tags         Recordings
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Recording ID"
// @Success      200  {object}  common.SuccessResponse{data=entities.AnalysisResult}
// @Failure      404  {object}  common.ErrorResponse
// @Router       /recordings/{id}/analysis [get]
func (h *Recording) Analysis(c echo.Context) error {
	caller, id, err := h.target(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	result, err := h.analyses.Get(c.Request().Context(), caller, id)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, result)
}

func (h *Recording) target(c echo.Context) (*entities.User, uuid.UUID, error) {
	caller, err := currentUser(c)
	if err != nil {
		return nil, uuid.Nil, err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return nil, uuid.Nil, err
	}
	return caller, id, nil
}
