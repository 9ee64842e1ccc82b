package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"catalog-relay/domain"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Consumer-side interfaces
type CatalogRepository interface {
	FetchCatalog(ctx context.Context) ([]domain.CatalogPage, error)
}

type AnalysisRepository interface {
	Analyze(ctx context.Context, imageURL string) (domain.AnalysisResult, error)
}

type MediaRepository interface {
	DownloadToFile(ctx context.Context, mediaURL, path string) (int64, string, error)
}

type StorageRepository interface {
	UploadFile(ctx context.Context, bucket, key, path, contentType string) (string, error)
}

type Notifier interface {
	SendMessage(ctx context.Context, queueURL string, body any) error
}

// MirrorSettings describes where mirrored media is staged and stored.
type MirrorSettings struct {
	Bucket         string
	BaseURL        string
	KeyPrefix      string
	TempDir        string
	EventsQueueURL string
}

type RelayService struct {
	catalogRepo  CatalogRepository
	analysisRepo AnalysisRepository
	mediaRepo    MediaRepository
	storageRepo  StorageRepository
	notifier     Notifier
	selector     *Selector
	imageBaseURL string
	mirror       MirrorSettings
	logger       *slog.Logger
	now          func() time.Time
}

type RelayOption func(*RelayService)

func WithCatalogRepository(r CatalogRepository) RelayOption {
	return func(s *RelayService) { s.catalogRepo = r }
}

func WithAnalysisRepository(r AnalysisRepository) RelayOption {
	return func(s *RelayService) { s.analysisRepo = r }
}

func WithMediaRepository(r MediaRepository) RelayOption {
	return func(s *RelayService) { s.mediaRepo = r }
}

func WithStorageRepository(r StorageRepository) RelayOption {
	return func(s *RelayService) { s.storageRepo = r }
}

func WithNotifier(n Notifier) RelayOption {
	return func(s *RelayService) { s.notifier = n }
}

func WithSelector(sel *Selector) RelayOption {
	return func(s *RelayService) { s.selector = sel }
}

// WithImageBaseURL sets the prefix media names are appended to, e.g.
// "https://i.4cdn.org/b/".
func WithImageBaseURL(url string) RelayOption {
	return func(s *RelayService) { s.imageBaseURL = url }
}

func WithMirrorSettings(m MirrorSettings) RelayOption {
	return func(s *RelayService) {
		m.BaseURL = strings.TrimRight(m.BaseURL, "/")
		s.mirror = m
	}
}

func WithLogger(l *slog.Logger) RelayOption {
	return func(s *RelayService) { s.logger = l }
}

func NewRelayService(opts ...RelayOption) *RelayService {
	s := &RelayService{
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.selector == nil {
		s.selector = NewSelector(9, 14)
	}
	if s.mirror.TempDir == "" {
		s.mirror.TempDir = os.TempDir()
	}
	return s
}

// Analyze forwards imageURL to the analysis service and returns its document as is.
func (s *RelayService) Analyze(ctx context.Context, imageURL string) (domain.AnalysisResult, error) {
	imageURL = strings.TrimSpace(imageURL)
	if imageURL == "" {
		return nil, domain.NewStageError(domain.PlatformRequest, "analyze", domain.ErrMissingURL)
	}

	result, err := s.analysisRepo.Analyze(ctx, imageURL)
	if err != nil {
		return nil, domain.NewStageError(domain.PlatformAnalysis, "analyze", err)
	}
	return result, nil
}

// PickAndAnalyze analyzes a random eligible catalog image and records its URL
// under "imageurl".
func (s *RelayService) PickAndAnalyze(ctx context.Context) (domain.AnalysisResult, error) {
	selection, err := s.pick(ctx)
	if err != nil {
		return nil, err
	}

	result, err := s.analysisRepo.Analyze(ctx, selection.MediaURL)
	if err != nil {
		return nil, domain.NewStageError(domain.PlatformAnalysis, "analyze", err)
	}
	if result == nil {
		result = domain.AnalysisResult{}
	}
	result[domain.KeyImageURL] = selection.MediaURL
	return result, nil
}

// PickAnalyzeAndMirror analyzes a random eligible catalog image while copying it
// to the mirror bucket. It returns only once both have finished; a failure of
// either fails the whole call.
func (s *RelayService) PickAnalyzeAndMirror(ctx context.Context) (domain.AnalysisResult, error) {
	if s.storageRepo == nil || s.mediaRepo == nil || s.mirror.Bucket == "" || s.mirror.BaseURL == "" {
		return nil, domain.NewStageError(domain.PlatformStorage, "mirror", domain.ErrMirrorNotConfigured)
	}

	selection, err := s.pick(ctx)
	if err != nil {
		return nil, err
	}

	var (
		result domain.AnalysisResult
		event  domain.MirrorEvent
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := s.analysisRepo.Analyze(gctx, selection.MediaURL)
		if err != nil {
			return domain.NewStageError(domain.PlatformAnalysis, "analyze", err)
		}
		result = r
		return nil
	})
	g.Go(func() error {
		e, err := s.mirrorMedia(gctx, selection)
		if err != nil {
			return err
		}
		event = e
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if result == nil {
		result = domain.AnalysisResult{}
	}
	result[domain.KeySourceImageURL] = selection.MediaURL
	result[domain.KeyMirrorImageURL] = event.MirrorURL

	s.publish(ctx, event)
	return result, nil
}

func (s *RelayService) pick(ctx context.Context) (domain.Selection, error) {
	pages, err := s.catalogRepo.FetchCatalog(ctx)
	if err != nil {
		return domain.Selection{}, domain.NewStageError(domain.PlatformCatalog, "fetch catalog", err)
	}

	selection, err := s.selector.Select(pages)
	if err != nil {
		return domain.Selection{}, domain.NewStageError(domain.PlatformSelection, "select media", err)
	}
	selection.MediaURL = s.imageBaseURL + selection.MediaName

	s.logger.InfoContext(ctx, "media selected",
		slog.String("media", selection.MediaName),
		slog.Int("page", selection.PageIndex),
		slog.Int("thread", selection.ThreadIndex),
		slog.Int("attempts", selection.Attempts),
	)
	return selection, nil
}

// mirrorMedia downloads the selected media to a uniquely named temp file and
// uploads it to the mirror bucket. The temp file is removed once downloaded; a
// failed download cleans up after itself.
func (s *RelayService) mirrorMedia(ctx context.Context, selection domain.Selection) (domain.MirrorEvent, error) {
	tempDir := filepath.Clean(s.mirror.TempDir)
	path := filepath.Join(tempDir, uuid.NewString()+"-"+selection.MediaName)
	if filepath.Dir(path) != tempDir {
		return domain.MirrorEvent{}, domain.NewStageError(domain.PlatformDownload, "download media",
			fmt.Errorf("%w: %q", domain.ErrInvalidMediaName, selection.MediaName))
	}

	size, contentType, err := s.mediaRepo.DownloadToFile(ctx, selection.MediaURL, path)
	if err != nil {
		return domain.MirrorEvent{}, domain.NewStageError(domain.PlatformDownload, "download media", err)
	}
	defer s.removeTemp(path)

	key := s.mirror.KeyPrefix + selection.MediaName
	location, err := s.storageRepo.UploadFile(ctx, s.mirror.Bucket, key, path, contentType)
	if err != nil {
		return domain.MirrorEvent{}, domain.NewStageError(domain.PlatformStorage, "upload media", err)
	}

	s.logger.InfoContext(ctx, "media mirrored",
		slog.String("media", selection.MediaName),
		slog.String("location", location),
		slog.Int64("bytes", size),
	)
	return domain.MirrorEvent{
		MediaName:  selection.MediaName,
		SourceURL:  selection.MediaURL,
		MirrorURL:  s.mirror.BaseURL + "/" + key,
		Location:   location,
		Size:       size,
		MirroredAt: s.now().UTC(),
	}, nil
}

func (s *RelayService) removeTemp(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn("failed to remove temp file", slog.String("path", path), slog.Any("error", err))
	}
}

// publish sends the mirror event when a queue is configured. Failures are only
// logged.
func (s *RelayService) publish(ctx context.Context, event domain.MirrorEvent) {
	if s.notifier == nil || s.mirror.EventsQueueURL == "" {
		return
	}
	if err := s.notifier.SendMessage(ctx, s.mirror.EventsQueueURL, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish mirror event",
			slog.String("media", event.MediaName),
			slog.Any("error", err),
		)
	}
}
