package letters

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"peopleops/internal/domain/payroll"
	cryptoutil "peopleops/internal/platform/crypto"
	"peopleops/internal/tenant"
)

type letterStore interface {
	Target(ctx context.Context, targetType, targetID string) (Target, error)
	CompanyName(ctx context.Context) (string, error)
	RecordLetter(ctx context.Context, letter GeneratedLetter) (GeneratedLetter, error)
}

// SnapshotSource reads the authoritative salary record for a target.
type SnapshotSource interface {
	LatestSnapshot(ctx context.Context, targetType, targetID string) (payroll.Snapshot, error)
}

type letterCounter interface {
	RecordLetterRendered()
	RecordLetterRenderFailure()
}

type Service struct {
	renderer Renderer
	crypto   *cryptoutil.Service
	metrics  letterCounter
	logger   *slog.Logger
}

func NewService(renderer Renderer, crypto *cryptoutil.Service, metrics letterCounter, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{renderer: renderer, crypto: crypto, metrics: metrics, logger: logger}
}

// Generate assembles and renders one letter. The most recent salary
// snapshot for the target is authoritative; the denormalized copy stored
// on an applicant is read only when no snapshot exists at all. A render
// failure leaves nothing behind: no file, no letter row.
func (s *Service) Generate(ctx context.Context, h *tenant.Handle, targetType, targetID, kind string) ([]byte, GeneratedLetter, error) {
	return s.generate(ctx, NewStore(h), payroll.NewStore(h), targetType, targetID, kind, time.Now())
}

func (s *Service) generate(ctx context.Context, store letterStore, snapshots SnapshotSource, targetType, targetID, kind string, now time.Time) ([]byte, GeneratedLetter, error) {
	target, err := store.Target(ctx, targetType, targetID)
	if err != nil {
		return nil, GeneratedLetter{}, err
	}
	company, err := store.CompanyName(ctx)
	if err != nil {
		return nil, GeneratedLetter{}, err
	}

	breakdown, err := s.resolveBreakdown(ctx, snapshots, target)
	if err != nil {
		return nil, GeneratedLetter{}, err
	}

	html, err := assembleHTML(kind, company, target, breakdown, now)
	if err != nil {
		return nil, GeneratedLetter{}, err
	}

	pdf, err := s.renderer.Render(ctx, html, DefaultOptions())
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordLetterRenderFailure()
		}
		s.logger.Error("letter render failed",
			"kind", kind, "target_type", targetType, "target_id", targetID, "error", err)
		return nil, GeneratedLetter{}, err
	}

	sum := sha256.Sum256(pdf)
	letter := GeneratedLetter{
		Kind:       kind,
		TargetType: targetType,
		TargetID:   targetID,
		SHA256:     hex.EncodeToString(sum[:]),
	}

	path, err := s.persist(letter, pdf)
	if err != nil {
		return nil, GeneratedLetter{}, err
	}
	letter.FilePath = path

	letter, err = store.RecordLetter(ctx, letter)
	if err != nil {
		return nil, GeneratedLetter{}, err
	}
	if s.metrics != nil {
		s.metrics.RecordLetterRendered()
	}
	return pdf, letter, nil
}

// resolveBreakdown enforces snapshot precedence.
func (s *Service) resolveBreakdown(ctx context.Context, snapshots SnapshotSource, target Target) (payroll.Breakdown, error) {
	snap, err := snapshots.LatestSnapshot(ctx, target.Type, target.ID)
	if err == nil {
		return snap.Breakdown, nil
	}
	if !errors.Is(err, payroll.ErrSnapshotNotFound) {
		return payroll.Breakdown{}, err
	}
	if target.Embedded != nil {
		s.logger.Warn("no authoritative snapshot, using embedded applicant copy",
			"target_type", target.Type, "target_id", target.ID)
		return *target.Embedded, nil
	}
	return payroll.Breakdown{}, payroll.ErrSnapshotNotFound
}

func (s *Service) persist(letter GeneratedLetter, pdf []byte) (string, error) {
	if err := os.MkdirAll("storage/letters", 0o755); err != nil {
		return "", err
	}
	path := filepath.Join("storage/letters",
		fmt.Sprintf("%s-%s-%s.pdf", letter.Kind, letter.TargetID, letter.SHA256[:12]))

	data := pdf
	if s.crypto != nil && s.crypto.Configured() {
		encrypted, err := s.crypto.Encrypt(pdf)
		if err != nil {
			return "", err
		}
		data = encrypted
		path += ".enc"
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}

func (s *Service) List(ctx context.Context, h *tenant.Handle, targetType, targetID string) ([]GeneratedLetter, error) {
	return NewStore(h).ListLetters(ctx, targetType, targetID)
}
