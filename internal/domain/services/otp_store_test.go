package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pramacoder/BookingApartSystem-sub000/internal/domain/models"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/test/testdb"
)

func newRedisOTP(t *testing.T) (*RedisOTPStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisOTPStore(client, OTPOptions{TTL: 5 * time.Minute, ResendAfter: 30 * time.Second}), mr
}

// wrongCode 生成一个与 code 不同的6位验证码
func wrongCode(code string) string {
	last := code[len(code)-1]
	if last == '9' {
		return code[:len(code)-1] + "0"
	}
	return code[:len(code)-1] + string(last+1)
}

func TestRedisOTPCreateAndVerify(t *testing.T) {
	store, _ := newRedisOTP(t)
	ctx := context.Background()

	code, err := store.Create(ctx, " Budi@Example.com ", models.OTPPurposeVerifyEmail)
	require.NoError(t, err)
	assert.Len(t, code, 6)

	assert.ErrorIs(t, store.Verify(ctx, "budi@example.com", models.OTPPurposeResetPassword, code), ErrOTPExpired)
	require.NoError(t, store.Verify(ctx, "budi@example.com", models.OTPPurposeVerifyEmail, code))
	// 验证成功后立即失效
	assert.ErrorIs(t, store.Verify(ctx, "budi@example.com", models.OTPPurposeVerifyEmail, code), ErrOTPExpired)
}

func TestRedisOTPResendThrottle(t *testing.T) {
	store, mr := newRedisOTP(t)
	ctx := context.Background()

	_, err := store.Create(ctx, "a@example.com", models.OTPPurposeVerifyEmail)
	require.NoError(t, err)
	_, err = store.Create(ctx, "a@example.com", models.OTPPurposeVerifyEmail)
	assert.ErrorIs(t, err, ErrOTPRateLimited)

	mr.FastForward(31 * time.Second)
	_, err = store.Create(ctx, "a@example.com", models.OTPPurposeVerifyEmail)
	assert.NoError(t, err)
}

func TestRedisOTPExpiry(t *testing.T) {
	store, mr := newRedisOTP(t)
	ctx := context.Background()

	code, err := store.Create(ctx, "a@example.com", models.OTPPurposeResetPassword)
	require.NoError(t, err)
	mr.FastForward(6 * time.Minute)
	assert.ErrorIs(t, store.Verify(ctx, "a@example.com", models.OTPPurposeResetPassword, code), ErrOTPExpired)
}

func TestRedisOTPTooManyAttempts(t *testing.T) {
	store, _ := newRedisOTP(t)
	ctx := context.Background()

	code, err := store.Create(ctx, "a@example.com", models.OTPPurposeVerifyEmail)
	require.NoError(t, err)
	bad := wrongCode(code)

	for i := 0; i < otpMaxVerifyAttempts-1; i++ {
		assert.ErrorIs(t, store.Verify(ctx, "a@example.com", models.OTPPurposeVerifyEmail, bad), ErrOTPInvalid)
	}
	assert.ErrorIs(t, store.Verify(ctx, "a@example.com", models.OTPPurposeVerifyEmail, bad), ErrOTPTooManyAttempts)
	// 超过次数后正确的验证码也不再可用
	assert.ErrorIs(t, store.Verify(ctx, "a@example.com", models.OTPPurposeVerifyEmail, code), ErrOTPExpired)
}

func TestRedisOTPConcurrentGuessesAreCounted(t *testing.T) {
	store, mr := newRedisOTP(t)
	ctx := context.Background()

	code, err := store.Create(ctx, "a@example.com", models.OTPPurposeVerifyEmail)
	require.NoError(t, err)
	bad := wrongCode(code)

	var mu sync.Mutex
	var wg sync.WaitGroup
	invalid := 0
	for i := 0; i < 3*otpMaxVerifyAttempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.Verify(ctx, "a@example.com", models.OTPPurposeVerifyEmail, bad)
			if errors.Is(err, ErrOTPInvalid) {
				mu.Lock()
				invalid++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// 只有前 max-1 次猜测会得到"验证码错误"，之后验证码被作废
	assert.Equal(t, otpMaxVerifyAttempts-1, invalid)
	assert.ErrorIs(t, store.Verify(ctx, "a@example.com", models.OTPPurposeVerifyEmail, code), ErrOTPExpired)
	assert.False(t, mr.Exists(store.codeKey("a@example.com", models.OTPPurposeVerifyEmail)))
}

func TestDBOTPStore(t *testing.T) {
	db := testdb.New(t)
	now := time.Date(2030, 1, 1, 9, 0, 0, 0, time.UTC)
	store := NewDBOTPStore(db, OTPOptions{TTL: 10 * time.Minute, ResendAfter: time.Minute})
	store.now = func() time.Time { return now }
	ctx := context.Background()

	first, err := store.Create(ctx, "a@example.com", models.OTPPurposeVerifyEmail)
	require.NoError(t, err)
	_, err = store.Create(ctx, "a@example.com", models.OTPPurposeVerifyEmail)
	assert.ErrorIs(t, err, ErrOTPRateLimited)

	now = now.Add(2 * time.Minute)
	second, err := store.Create(ctx, "a@example.com", models.OTPPurposeVerifyEmail)
	require.NoError(t, err)

	// 新验证码签发后旧验证码失效
	if first != second {
		assert.ErrorIs(t, store.Verify(ctx, "a@example.com", models.OTPPurposeVerifyEmail, first), ErrOTPInvalid)
	}
	require.NoError(t, store.Verify(ctx, "a@example.com", models.OTPPurposeVerifyEmail, second))
	assert.ErrorIs(t, store.Verify(ctx, "a@example.com", models.OTPPurposeVerifyEmail, second), ErrOTPExpired)

	now = now.Add(2 * time.Minute)
	third, err := store.Create(ctx, "a@example.com", models.OTPPurposeVerifyEmail)
	require.NoError(t, err)
	now = now.Add(11 * time.Minute)
	assert.ErrorIs(t, store.Verify(ctx, "a@example.com", models.OTPPurposeVerifyEmail, third), ErrOTPExpired)
}

type failingOTPStore struct{}

func (failingOTPStore) Create(context.Context, string, models.OTPPurpose) (string, error) {
	return "", errors.New("redis: connection refused")
}

func (failingOTPStore) Verify(context.Context, string, models.OTPPurpose, string) error {
	return errors.New("redis: connection refused")
}

func TestFallbackOTPStoreUsesDatabaseWhenRedisFails(t *testing.T) {
	db := testdb.New(t)
	store := &FallbackOTPStore{Primary: failingOTPStore{}, Fallback: NewDBOTPStore(db, OTPOptions{})}
	ctx := context.Background()

	code, err := store.Create(ctx, "a@example.com", models.OTPPurposeVerifyEmail)
	require.NoError(t, err)
	require.NoError(t, store.Verify(ctx, "a@example.com", models.OTPPurposeVerifyEmail, code))

	var record models.OTPCode
	require.NoError(t, db.Where("email = ?", "a@example.com").Take(&record).Error)
	assert.NotNil(t, record.ConsumedAt)
}

func TestFallbackOTPStoreKeepsPrimaryBusinessErrors(t *testing.T) {
	primary, _ := newRedisOTP(t)
	store := &FallbackOTPStore{Primary: primary, Fallback: NewDBOTPStore(testdb.New(t), OTPOptions{})}
	ctx := context.Background()

	_, err := store.Create(ctx, "a@example.com", models.OTPPurposeVerifyEmail)
	require.NoError(t, err)
	_, err = store.Create(ctx, "a@example.com", models.OTPPurposeVerifyEmail)
	assert.ErrorIs(t, err, ErrOTPRateLimited)
}
