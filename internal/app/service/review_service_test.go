package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"
	"scholarstream/internal/common"
	"scholarstream/internal/domain/model"
	"scholarstream/internal/domain/repository"
	"scholarstream/internal/platform/cache"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newReviewService(t *testing.T, f *fixture) (*ReviewService, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewReviewService(f.store.Reviews(), f.policy, cache.NewRedisReviewCache(rdb, time.Minute), f.log), mr
}

func intPtr(v int) *int { return &v }

func TestCreateReviewStampsOwnerAndValidatesRating(t *testing.T) {
	ctx := context.Background()
	svc, _ := newReviewService(t, newFixture(t))

	rv, err := svc.Create(ctx, alice, CreateReviewRequest{ScholarshipID: "sch1", RatingPoint: 4, ReviewComment: "good"})
	require.NoError(t, err)
	assert.Equal(t, alice.Email, rv.UserEmail)
	assert.Equal(t, "Alice", rv.UserName)
	assert.False(t, rv.ReviewDate.IsZero())

	for _, rating := range []int{0, 6, -1} {
		_, err = svc.Create(ctx, alice, CreateReviewRequest{ScholarshipID: "sch1", RatingPoint: rating})
		assert.ErrorIs(t, err, common.ErrValidation)
	}
	_, err = svc.Create(ctx, alice, CreateReviewRequest{RatingPoint: 3})
	assert.ErrorIs(t, err, common.ErrMissingParameter)
	_, err = svc.Create(ctx, nil, CreateReviewRequest{ScholarshipID: "sch1", RatingPoint: 3})
	assert.ErrorIs(t, err, common.ErrUnauthorized)
}

func TestPublicRecentHidesEmailsNewestFirstCapped(t *testing.T) {
	ctx := context.Background()
	svc, _ := newReviewService(t, newFixture(t))
	for i := 0; i < 8; i++ {
		_, err := svc.Create(ctx, alice, CreateReviewRequest{ScholarshipID: "sch1", RatingPoint: 1 + i%5})
		require.NoError(t, err)
		time.Sleep(time.Millisecond)
	}

	recent, err := svc.PublicRecent(ctx)
	require.NoError(t, err)

	require.Len(t, recent, model.PublicReviewLimit)
	for i := 1; i < len(recent); i++ {
		assert.False(t, recent[i].ReviewDate.After(recent[i-1].ReviewDate))
	}
	body, err := json.Marshal(recent)
	require.NoError(t, err)
	assert.NotContains(t, string(body), alice.Email)
	assert.NotContains(t, string(body), "userEmail")
}

func TestPublicRecentIsCachedAndInvalidatedOnWrite(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc, mr := newReviewService(t, f)

	rv, err := svc.Create(ctx, alice, CreateReviewRequest{ScholarshipID: "sch1", RatingPoint: 5, ReviewComment: "v1"})
	require.NoError(t, err)

	first, err := svc.PublicRecent(ctx)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.True(t, mr.Exists(cache.PublicReviewsKey))

	// A write through the repository alone is not visible while cached.
	require.NoError(t, f.store.Reviews().Create(ctx, &model.Review{ID: "direct", RatingPoint: 3, ReviewDate: time.Now().UTC()}))
	cached, err := svc.PublicRecent(ctx)
	require.NoError(t, err)
	assert.Len(t, cached, 1)

	_, err = svc.Update(ctx, alice, rv.ID, model.ReviewPatch{ReviewComment: strPtr("v2")})
	require.NoError(t, err)
	assert.False(t, mr.Exists(cache.PublicReviewsKey))

	fresh, err := svc.PublicRecent(ctx)
	require.NoError(t, err)
	assert.Len(t, fresh, 2)
}

func TestPublicRecentSurvivesCacheOutage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc, mr := newReviewService(t, f)
	_, err := svc.Create(ctx, alice, CreateReviewRequest{ScholarshipID: "sch1", RatingPoint: 5})
	require.NoError(t, err)
	mr.Close()

	recent, err := svc.PublicRecent(ctx)

	require.NoError(t, err)
	assert.Len(t, recent, 1)
}

// racingReviews runs onList once, after ListRecent has read its rows.
type racingReviews struct {
	repository.ReviewRepository
	onList func()
}

func (r *racingReviews) ListRecent(ctx context.Context, limit int) ([]model.Review, error) {
	reviews, err := r.ReviewRepository.ListRecent(ctx, limit)
	if r.onList != nil {
		hook := r.onList
		r.onList = nil
		hook()
	}
	return reviews, err
}

func TestPublicRecentDoesNotCacheListingInvalidatedMidRead(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	repo := &racingReviews{ReviewRepository: f.store.Reviews()}
	svc := NewReviewService(repo, f.policy, cache.NewRedisReviewCache(rdb, time.Minute), f.log)

	rv, err := svc.Create(ctx, alice, CreateReviewRequest{ScholarshipID: "sch1", RatingPoint: 1, ReviewComment: "offensive"})
	require.NoError(t, err)

	repo.onList = func() { require.NoError(t, svc.Delete(ctx, mod, rv.ID)) }
	during, err := svc.PublicRecent(ctx)
	require.NoError(t, err)
	assert.Len(t, during, 1)
	assert.False(t, mr.Exists(cache.PublicReviewsKey))

	after, err := svc.PublicRecent(ctx)
	require.NoError(t, err)
	assert.Empty(t, after)
}

func TestReviewUpdateDeleteOwnership(t *testing.T) {
	ctx := context.Background()
	svc, _ := newReviewService(t, newFixture(t))
	rv, err := svc.Create(ctx, alice, CreateReviewRequest{ScholarshipID: "sch1", RatingPoint: 4, ReviewComment: "ok"})
	require.NoError(t, err)

	_, err = svc.Update(ctx, bob, rv.ID, model.ReviewPatch{RatingPoint: intPtr(1)})
	assert.ErrorIs(t, err, common.ErrForbidden)
	_, err = svc.Update(ctx, alice, "missing", model.ReviewPatch{RatingPoint: intPtr(1)})
	assert.ErrorIs(t, err, common.ErrNotFound)
	_, err = svc.Update(ctx, alice, rv.ID, model.ReviewPatch{RatingPoint: intPtr(9)})
	assert.ErrorIs(t, err, common.ErrValidation)
	_, err = svc.Update(ctx, alice, rv.ID, model.ReviewPatch{})
	assert.ErrorIs(t, err, common.ErrValidation)

	updated, err := svc.Update(ctx, mod, rv.ID, model.ReviewPatch{RatingPoint: intPtr(2)})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.RatingPoint)
	assert.Equal(t, "ok", updated.ReviewComment)
	assert.Equal(t, alice.Email, updated.UserEmail)

	assert.ErrorIs(t, svc.Delete(ctx, bob, rv.ID), common.ErrForbidden)
	require.NoError(t, svc.Delete(ctx, alice, rv.ID))
	assert.ErrorIs(t, svc.Delete(ctx, alice, rv.ID), common.ErrNotFound)
}

func TestReviewListings(t *testing.T) {
	ctx := context.Background()
	svc, _ := newReviewService(t, newFixture(t))
	_, err := svc.Create(ctx, alice, CreateReviewRequest{ScholarshipID: "sch1", RatingPoint: 4})
	require.NoError(t, err)
	_, err = svc.Create(ctx, bob, CreateReviewRequest{ScholarshipID: "sch2", RatingPoint: 5})
	require.NoError(t, err)

	forSch, err := svc.ListForScholarship(ctx, "sch1")
	require.NoError(t, err)
	assert.Len(t, forSch, 1)

	mine, err := svc.ListForOwner(ctx, bob, bob.Email)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "sch2", mine[0].ScholarshipID)

	_, err = svc.ListForOwner(ctx, bob, alice.Email)
	assert.ErrorIs(t, err, common.ErrForbidden)

	_, err = svc.ListAll(ctx, alice)
	assert.ErrorIs(t, err, common.ErrForbidden)
	all, err := svc.ListAll(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
