package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/merchantkit/voucher-service/internal/models"
)

const (
	codeCharset        = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	defaultSuffixLen   = 8
	maxAttemptsPerCode = 100

	// MaxGeneratedPerBatch bounds one generation request.
	MaxGeneratedPerBatch = 50
)

var (
	// Manually entered codes: what a merchant types into the form.
	manualCodePattern = regexp.MustCompile(`^[A-Z0-9_-]{3,20}$`)
	// Generated and duplicated codes get the looser bound.
	generatedCodePattern = regexp.MustCompile(`^[A-Z0-9_-]{1,50}$`)
)

// NormalizeCode trims and uppercases a raw code string. Everything stored or
// compared goes through this first.
func NormalizeCode(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// CodeService validates manually entered codes and generates unique ones.
type CodeService struct {
	codes  CodeStore
	logger *slog.Logger

	// suffixLen is the generated suffix length; tests shrink it to force
	// collision exhaustion.
	suffixLen int
}

func NewCodeService(codes CodeStore, logger *slog.Logger) *CodeService {
	return &CodeService{
		codes:     codes,
		logger:    logger,
		suffixLen: defaultSuffixLen,
	}
}

// ValidateNewCode normalizes a manually entered code and checks format and
// tenant-wide uniqueness (case-insensitive), excluding the record being
// updated. Pure check: the caller performs the write after it passes.
func (s *CodeService) ValidateNewCode(ctx context.Context, tenantID uuid.UUID, raw string, excludeID *uuid.UUID) (string, error) {
	code := NormalizeCode(raw)
	if !manualCodePattern.MatchString(code) {
		return "", fmt.Errorf("%w: code must be 3-20 characters of A-Z, 0-9, '-' or '_'", ErrInvalidFormat)
	}
	taken, err := s.codes.Exists(ctx, tenantID, code, excludeID)
	if err != nil {
		return "", err
	}
	if taken {
		return "", fmt.Errorf("%w: %s", ErrDuplicateCode, code)
	}
	return code, nil
}

// Generate produces quantity codes for a discount, unique among themselves
// and against everything already stored for the tenant, and inserts them in
// batches. When a concurrent generator wins a code, only the missing subset
// is redrawn and retried.
func (s *CodeService) Generate(ctx context.Context, d *models.Discount, quantity int, prefix string, usageLimit *int) ([]models.VoucherCode, error) {
	if quantity < 1 || quantity > MaxGeneratedPerBatch {
		return nil, fmt.Errorf("%w: quantity must be between 1 and %d", ErrInvalidFormat, MaxGeneratedPerBatch)
	}
	prefix = NormalizeCode(prefix)
	if prefix != "" && !generatedCodePattern.MatchString(prefix) {
		return nil, fmt.Errorf("%w: prefix may only contain A-Z, 0-9, '-' or '_'", ErrInvalidFormat)
	}

	seen, err := s.codes.ListExisting(ctx, d.TenantID)
	if err != nil {
		return nil, err
	}

	pending, err := s.draw(seen, quantity, prefix)
	if err != nil {
		return nil, err
	}

	inserted := make([]models.VoucherCode, 0, quantity)
	for round := 0; len(inserted) < quantity; round++ {
		if round >= maxAttemptsPerCode {
			return nil, ErrGenerationExhausted
		}

		batch := make([]models.VoucherCode, 0, len(pending))
		for _, code := range pending {
			batch = append(batch, models.VoucherCode{
				ID:         uuid.New(),
				DiscountID: d.ID,
				TenantID:   d.TenantID,
				Code:       code,
				Status:     models.CodeStatusActive,
				UsageLimit: usageLimit,
			})
		}
		ok, err := s.codes.InsertBatch(ctx, batch)
		if err != nil {
			return nil, err
		}
		inserted = append(inserted, ok...)

		if len(ok) < len(batch) {
			// Lost a race: those code strings are taken now. Redraw only
			// the missing subset.
			okSet := make(map[string]struct{}, len(ok))
			for _, c := range ok {
				okSet[c.Code] = struct{}{}
			}
			missing := 0
			for _, code := range pending {
				if _, won := okSet[code]; !won {
					missing++
				}
			}
			s.logger.Warn("code generation batch raced, redrawing",
				"discount_id", d.ID, "missing", missing)
			pending, err = s.draw(seen, missing, prefix)
			if err != nil {
				return nil, err
			}
			continue
		}
		pending = nil
	}
	return inserted, nil
}

// draw collects n candidate codes not present in seen, adding each accepted
// candidate to seen so later draws stay disjoint.
func (s *CodeService) draw(seen map[string]struct{}, n int, prefix string) ([]string, error) {
	out := make([]string, 0, n)
	for len(out) < n {
		found := false
		for attempt := 0; attempt < maxAttemptsPerCode; attempt++ {
			suffix, err := randomSuffix(s.suffixLen)
			if err != nil {
				return nil, err
			}
			candidate := suffix
			if prefix != "" {
				candidate = prefix + "-" + suffix
			}
			if !generatedCodePattern.MatchString(candidate) {
				return nil, fmt.Errorf("%w: prefix too long", ErrInvalidFormat)
			}
			if _, taken := seen[candidate]; taken {
				continue
			}
			seen[candidate] = struct{}{}
			out = append(out, candidate)
			found = true
			break
		}
		if !found {
			return nil, ErrGenerationExhausted
		}
	}
	return out, nil
}

// DuplicateCode derives a fresh code for a duplicated discount: BASE_COPY,
// then BASE_COPY1, BASE_COPY2, up to a bounded attempt count.
func (s *CodeService) DuplicateCode(ctx context.Context, tenantID uuid.UUID, base string) (string, error) {
	base = NormalizeCode(base)
	for i := 0; i < maxAttemptsPerCode; i++ {
		candidate := base + "_COPY"
		if i > 0 {
			candidate = fmt.Sprintf("%s_COPY%d", base, i)
		}
		if !generatedCodePattern.MatchString(candidate) {
			continue
		}
		taken, err := s.codes.Exists(ctx, tenantID, candidate, nil)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", ErrGenerationExhausted
}

func randomSuffix(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("random suffix: %w", err)
	}
	for i := range buf {
		buf[i] = codeCharset[int(buf[i])%len(codeCharset)]
	}
	return string(buf), nil
}
