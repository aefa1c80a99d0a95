package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/merchantkit/voucher-service/internal/models"
	"github.com/merchantkit/voucher-service/internal/service/servicetest"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seedCode(t *testing.T, store *servicetest.MemStore, tenantID uuid.UUID, code string) *models.VoucherCode {
	t.Helper()
	vc := &models.VoucherCode{
		ID:         uuid.New(),
		DiscountID: uuid.New(),
		TenantID:   tenantID,
		Code:       code,
		Status:     models.CodeStatusActive,
	}
	if err := store.Codes().Insert(context.Background(), vc); err != nil {
		t.Fatalf("seed code %s: %v", code, err)
	}
	return vc
}

func TestNormalizeCode(t *testing.T) {
	if got := NormalizeCode("  summer-10 "); got != "SUMMER-10" {
		t.Errorf("got %q, want SUMMER-10", got)
	}
}

func TestValidateNewCodeFormat(t *testing.T) {
	store := servicetest.NewMemStore()
	svc := NewCodeService(store.Codes(), testLogger())
	tenantID := uuid.New()

	bad := []string{"", "ab", "has space", "abc!", strings.Repeat("X", 21)}
	for _, raw := range bad {
		if _, err := svc.ValidateNewCode(context.Background(), tenantID, raw, nil); !errors.Is(err, ErrInvalidFormat) {
			t.Errorf("code %q: got %v, want ErrInvalidFormat", raw, err)
		}
	}

	got, err := svc.ValidateNewCode(context.Background(), tenantID, " summer-10 ", nil)
	if err != nil {
		t.Fatalf("valid code rejected: %v", err)
	}
	if got != "SUMMER-10" {
		t.Errorf("got %q, want SUMMER-10", got)
	}
}

func TestValidateNewCodeDuplicate(t *testing.T) {
	store := servicetest.NewMemStore()
	svc := NewCodeService(store.Codes(), testLogger())
	tenantID := uuid.New()
	existing := seedCode(t, store, tenantID, "SUMMER")

	// Case-insensitive clash.
	if _, err := svc.ValidateNewCode(context.Background(), tenantID, "summer", nil); !errors.Is(err, ErrDuplicateCode) {
		t.Errorf("got %v, want ErrDuplicateCode", err)
	}

	// Updating the record that owns the code is fine.
	if _, err := svc.ValidateNewCode(context.Background(), tenantID, "SUMMER", &existing.ID); err != nil {
		t.Errorf("exclude own record: %v", err)
	}

	// Another tenant may reuse the string.
	if _, err := svc.ValidateNewCode(context.Background(), uuid.New(), "SUMMER", nil); err != nil {
		t.Errorf("other tenant: %v", err)
	}
}

func TestGenerateUniqueAndDisjoint(t *testing.T) {
	store := servicetest.NewMemStore()
	svc := NewCodeService(store.Codes(), testLogger())
	tenantID := uuid.New()
	existing := map[string]struct{}{}
	for i := 0; i < 10; i++ {
		c := seedCode(t, store, tenantID, fmt.Sprintf("OLD-%d", i))
		existing[c.Code] = struct{}{}
	}

	d := &models.Discount{ID: uuid.New(), TenantID: tenantID, Kind: models.KindVoucher}
	codes, err := svc.Generate(context.Background(), d, 20, "sale", nil)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(codes) != 20 {
		t.Fatalf("got %d codes, want 20", len(codes))
	}

	pattern := regexp.MustCompile(`^SALE-[A-Z0-9]{8}$`)
	seen := map[string]struct{}{}
	for _, c := range codes {
		if !pattern.MatchString(c.Code) {
			t.Errorf("code %q does not match expected shape", c.Code)
		}
		if _, dup := seen[c.Code]; dup {
			t.Errorf("duplicate generated code %q", c.Code)
		}
		seen[c.Code] = struct{}{}
		if _, clash := existing[c.Code]; clash {
			t.Errorf("generated code %q clashes with existing", c.Code)
		}
		if store.Code(tenantID, c.Code) == nil {
			t.Errorf("generated code %q was not stored", c.Code)
		}
	}
}

func TestGenerateQuantityBounds(t *testing.T) {
	store := servicetest.NewMemStore()
	svc := NewCodeService(store.Codes(), testLogger())
	d := &models.Discount{ID: uuid.New(), TenantID: uuid.New()}

	for _, q := range []int{0, -1, MaxGeneratedPerBatch + 1} {
		if _, err := svc.Generate(context.Background(), d, q, "", nil); !errors.Is(err, ErrInvalidFormat) {
			t.Errorf("quantity %d: got %v, want ErrInvalidFormat", q, err)
		}
	}
}

func TestGenerateExhaustedOnTinyCodeSpace(t *testing.T) {
	store := servicetest.NewMemStore()
	svc := NewCodeService(store.Codes(), testLogger())
	svc.suffixLen = 1
	tenantID := uuid.New()

	// Occupy the entire single-character code space.
	for _, ch := range codeCharset {
		seedCode(t, store, tenantID, string(ch))
	}

	d := &models.Discount{ID: uuid.New(), TenantID: tenantID}
	if _, err := svc.Generate(context.Background(), d, 1, "", nil); !errors.Is(err, ErrGenerationExhausted) {
		t.Errorf("got %v, want ErrGenerationExhausted", err)
	}
	set, _ := store.Codes().ListExisting(context.Background(), tenantID)
	if len(set) != len(codeCharset) {
		t.Errorf("exhausted generation must not write anything, have %d codes", len(set))
	}
}

func TestDuplicateCodeSuffixes(t *testing.T) {
	store := servicetest.NewMemStore()
	svc := NewCodeService(store.Codes(), testLogger())
	tenantID := uuid.New()

	got, err := svc.DuplicateCode(context.Background(), tenantID, "SUMMER")
	if err != nil {
		t.Fatalf("duplicate: %v", err)
	}
	if got != "SUMMER_COPY" {
		t.Errorf("got %q, want SUMMER_COPY", got)
	}

	seedCode(t, store, tenantID, "SUMMER_COPY")
	got, err = svc.DuplicateCode(context.Background(), tenantID, "SUMMER")
	if err != nil {
		t.Fatalf("duplicate with clash: %v", err)
	}
	if got != "SUMMER_COPY1" {
		t.Errorf("got %q, want SUMMER_COPY1", got)
	}
}

func TestDuplicateCodeExhausted(t *testing.T) {
	store := servicetest.NewMemStore()
	svc := NewCodeService(store.Codes(), testLogger())
	tenantID := uuid.New()

	seedCode(t, store, tenantID, "SUMMER_COPY")
	for i := 1; i < maxAttemptsPerCode; i++ {
		seedCode(t, store, tenantID, fmt.Sprintf("SUMMER_COPY%d", i))
	}

	if _, err := svc.DuplicateCode(context.Background(), tenantID, "SUMMER"); !errors.Is(err, ErrGenerationExhausted) {
		t.Errorf("got %v, want ErrGenerationExhausted", err)
	}
}
