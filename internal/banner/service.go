package banner

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"attendboard/internal/apperr"
	"attendboard/internal/blob"
	"attendboard/internal/metrics"
	"attendboard/internal/queue"
)

const (
	msgNotFound    = "Banner not found"
	msgWindowOrder = "start_date must be before end_date"
	msgNoContent   = "content must not be empty"
)

// Service validates banner writes and resolves the active banner.
type Service struct {
	repo   Repository
	cache  LiveCache
	blobs  blob.Store
	events queue.Publisher
	now    func() time.Time
}

// NewService wires the banner service. cache and events may be nil.
func NewService(repo Repository, cache LiveCache, blobs blob.Store, events queue.Publisher) *Service {
	return &Service{
		repo:   repo,
		cache:  cache,
		blobs:  blobs,
		events: events,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func parseDate(field, value string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(value), time.UTC)
	if err != nil {
		return time.Time{}, apperr.InvalidInput("Invalid " + field + " format. Use: YYYY-MM-DD HH:MM:SS")
	}
	return t, nil
}

// Create validates req and stores a new active banner without an image.
func (s *Service) Create(ctx context.Context, req CreateRequest) (Banner, error) {
	start, err := parseDate("start_date", req.StartDate)
	if err != nil {
		return Banner{}, err
	}
	end, err := parseDate("end_date", req.EndDate)
	if err != nil {
		return Banner{}, err
	}
	if !start.Before(end) {
		return Banner{}, apperr.InvalidInput(msgWindowOrder)
	}
	if strings.TrimSpace(req.Content) == "" {
		return Banner{}, apperr.InvalidInput(msgNoContent)
	}

	now := s.now()
	b, err := s.repo.Insert(ctx, Banner{
		Title:     req.Title,
		Content:   req.Content,
		StartDate: start,
		EndDate:   end,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return Banner{}, s.writeErr("Insert error", err)
	}
	s.changed(ctx, b.ID, "created")
	return b, nil
}

// Get returns the banner with the given id.
func (s *Service) Get(ctx context.Context, id int64) (Banner, error) {
	b, err := s.repo.Get(ctx, id)
	if err != nil {
		return Banner{}, apperr.Storage("DB error", err)
	}
	if b == nil {
		return Banner{}, apperr.NotFound(msgNotFound)
	}
	return *b, nil
}

// List returns up to limit banners, newest created first.
func (s *Service) List(ctx context.Context, limit int) ([]Banner, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := s.repo.List(ctx, limit)
	if err != nil {
		return nil, apperr.Storage("DB error", err)
	}
	return rows, nil
}

// Update applies the non-nil fields of req. The resulting window must still
// satisfy start_date < end_date, whichever bound changed.
func (s *Service) Update(ctx context.Context, id int64, req UpdateRequest) (Banner, error) {
	b, err := s.Get(ctx, id)
	if err != nil {
		return Banner{}, err
	}

	if req.Title != nil {
		b.Title = req.Title
	}
	if req.Content != nil {
		if strings.TrimSpace(*req.Content) == "" {
			return Banner{}, apperr.InvalidInput(msgNoContent)
		}
		b.Content = *req.Content
	}
	if req.StartDate != nil {
		if b.StartDate, err = parseDate("start_date", *req.StartDate); err != nil {
			return Banner{}, err
		}
	}
	if req.EndDate != nil {
		if b.EndDate, err = parseDate("end_date", *req.EndDate); err != nil {
			return Banner{}, err
		}
	}
	if (req.StartDate != nil || req.EndDate != nil) && !b.StartDate.Before(b.EndDate) {
		return Banner{}, apperr.InvalidInput(msgWindowOrder)
	}
	if req.IsActive != nil {
		b.IsActive = *req.IsActive
	}
	b.UpdatedAt = s.now()

	out, err := s.repo.Update(ctx, b)
	if err != nil {
		return Banner{}, s.writeErr("Update error", err)
	}
	s.changed(ctx, out.ID, "updated")
	return out, nil
}

// AttachImage stores r through the blob store and records the reference on
// banner id. The banner must exist before any bytes are written. Only
// image_url and updated_at are written, so updates that land while the
// upload streams are kept.
func (s *Service) AttachImage(ctx context.Context, id int64, r io.Reader, filename string) (Banner, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return Banner{}, err
	}

	ref, err := s.blobs.Put(ctx, r, filename)
	if err != nil {
		return Banner{}, err
	}

	out, err := s.repo.SetImage(ctx, id, ref, s.now())
	if err != nil {
		return Banner{}, s.writeErr("Update error", err)
	}
	s.changed(ctx, out.ID, "image")
	return out, nil
}

// UploadImage stores r without tying it to a banner.
func (s *Service) UploadImage(ctx context.Context, r io.Reader, filename string) (ImageUpload, error) {
	ref, err := s.blobs.Put(ctx, r, filename)
	if err != nil {
		return ImageUpload{}, err
	}
	return ImageUpload{ImageURL: ref}, nil
}

// Delete removes banner id. Its image, if any, stays in the blob store.
func (s *Service) Delete(ctx context.Context, id int64) error {
	ok, err := s.repo.Delete(ctx, id)
	if err != nil {
		return apperr.Storage("Delete error", err)
	}
	if !ok {
		return apperr.NotFound(msgNotFound)
	}
	s.changed(ctx, id, "deleted")
	return nil
}

// Active returns the banner to show now, or the default banner when no
// stored banner is eligible.
func (s *Service) Active(ctx context.Context) (Banner, error) {
	now := s.now()
	live, err := s.live(ctx, now)
	if err != nil {
		return Banner{}, apperr.Storage("DB error", err)
	}
	if b, ok := Resolve(live, now); ok {
		metrics.BannerResolutions.WithLabelValues("stored").Inc()
		return b, nil
	}
	metrics.BannerResolutions.WithLabelValues("default").Inc()
	return defaultBanner(now), nil
}

// IsDefault reports whether b is the synthesized default banner.
func IsDefault(b Banner) bool { return b.ID == 0 }

// RefreshCache reloads the live set into the cache.
func (s *Service) RefreshCache(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	gen, err := s.cache.Generation(ctx)
	if err != nil {
		return err
	}
	live, err := s.repo.Live(ctx, s.now())
	if err != nil {
		return err
	}
	stored, err := s.cache.Set(ctx, gen, live)
	if err != nil {
		return err
	}
	if !stored {
		metrics.BannerCache.WithLabelValues("stale").Inc()
	}
	return nil
}

func (s *Service) live(ctx context.Context, now time.Time) ([]Banner, error) {
	var (
		gen       int64
		cacheable bool
	)
	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx)
		switch {
		case err != nil:
			metrics.BannerCache.WithLabelValues("error").Inc()
			log.WithError(err).Warn("banner cache read failed")
		case ok:
			metrics.BannerCache.WithLabelValues("hit").Inc()
			return cached, nil
		default:
			metrics.BannerCache.WithLabelValues("miss").Inc()
		}
		// the generation must be read before the repository
		if gen, err = s.cache.Generation(ctx); err != nil {
			log.WithError(err).Warn("banner cache generation read failed")
		} else {
			cacheable = true
		}
	}

	live, err := s.repo.Live(ctx, now)
	if err != nil {
		return nil, err
	}
	if cacheable {
		stored, err := s.cache.Set(ctx, gen, live)
		switch {
		case err != nil:
			log.WithError(err).Warn("banner cache write failed")
		case !stored:
			metrics.BannerCache.WithLabelValues("stale").Inc()
			log.Debug("banner cache write skipped, invalidated during read")
		}
	}
	return live, nil
}

// changed drops the cached live set and announces the write.
func (s *Service) changed(ctx context.Context, id int64, action string) {
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			log.WithError(err).WithField("banner_id", id).Warn("banner cache invalidate failed")
		}
	}
	log.WithFields(log.Fields{"banner_id": id, "action": action}).Info("banner changed")
	queue.Emit(ctx, s.events, queue.TypeBannerChanged, queue.BannerEvent{BannerID: id, Action: action})
}

func (s *Service) writeErr(msg string, err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return apperr.NotFound(msgNotFound)
	case errors.Is(err, ErrWindowOrder):
		return apperr.InvalidInput(msgWindowOrder)
	default:
		return apperr.Storage(msg, err)
	}
}
