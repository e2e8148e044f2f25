package validation_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/scorehub/internal/domain/model"
	"github.com/okian/scorehub/internal/domain/validation"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func score(player string, g model.Game, v int64) model.Score {
	return model.Score{PlayerID: player, PlayerName: player, Game: g, Score: v}
}

func reasonOf(err error) string {
	r, _ := validation.Reason(err)
	return r
}

func TestContentBounds(t *testing.T) {
	Convey("Given a validator", t, func() {
		ctx := context.Background()
		v := validation.New()

		Convey("When a reaction is too fast then valid", func() {
			err := v.Validate(ctx, score("p1", model.GameReaction, 40))
			So(errors.Is(err, validation.ErrRejected), ShouldBeTrue)
			So(reasonOf(err), ShouldEqual, validation.ReasonReactionFast)

			Convey("Then a valid reaction should still be accepted", func() {
				So(v.Validate(ctx, score("p1", model.GameReaction, 180)), ShouldBeNil)
			})
		})

		Convey("When scores sit exactly on the bounds", func() {
			So(v.Validate(ctx, score("a", model.GameReaction, 50)), ShouldBeNil)
			So(v.Validate(ctx, score("b", model.GameReaction, 5000)), ShouldBeNil)
			So(v.Validate(ctx, score("a", model.GameTyping, 0)), ShouldBeNil)
			So(v.Validate(ctx, score("b", model.GameTyping, 300)), ShouldBeNil)
			So(v.Validate(ctx, score("a", model.GamePattern, 0)), ShouldBeNil)
			So(v.Validate(ctx, score("b", model.GamePattern, 200)), ShouldBeNil)
		})

		Convey("When scores are out of range", func() {
			cases := []struct {
				s      model.Score
				reason string
			}{
				{score("p", model.GameReaction, 49), validation.ReasonReactionFast},
				{score("p", model.GameReaction, 5001), validation.ReasonReactionSlow},
				{score("p", model.GameTyping, -1), validation.ReasonTypingInvalid},
				{score("p", model.GameTyping, 301), validation.ReasonTypingTooHigh},
				{score("p", model.GamePattern, -5), validation.ReasonPatternInvalid},
				{score("p", model.GamePattern, 201), validation.ReasonPatternTooHigh},
				{score("p", model.Game("chess"), 10), validation.ReasonUnknownGame},
				{score("", model.GameTyping, 10), validation.ReasonMissingPlayer},
			}

			Convey("Then each should be rejected with its reason", func() {
				for _, c := range cases {
					So(reasonOf(v.Validate(ctx, c.s)), ShouldEqual, c.reason)
				}
				So(v.Size(), ShouldEqual, 0)
			})
		})
	})
}

func TestRateLimitReasonFollowsWindow(t *testing.T) {
	Convey("Given a validator with a 2.5s window", t, func() {
		ctx := context.Background()
		clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
		v := validation.New(validation.WithClock(clock.Now), validation.WithWindow(2500*time.Millisecond))

		So(v.Validate(ctx, score("p1", model.GameReaction, 300)), ShouldBeNil)
		clock.Advance(time.Second)
		err := v.Validate(ctx, score("p1", model.GameReaction, 280))

		Convey("Then the reason names the configured window", func() {
			So(reasonOf(err), ShouldEqual, "Rate limited - wait 2.5s between scores")
		})
	})
}

func TestRateLimit(t *testing.T) {
	Convey("Given a validator with a controllable clock", t, func() {
		ctx := context.Background()
		clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
		v := validation.New(validation.WithClock(clock.Now))

		So(v.Validate(ctx, score("p1", model.GameTyping, 80)), ShouldBeNil)

		Convey("When the same player submits the same game inside the window", func() {
			clock.Advance(4999 * time.Millisecond)
			err := v.Validate(ctx, score("p1", model.GameTyping, 90))

			Convey("Then it should be rate limited", func() {
				So(reasonOf(err), ShouldEqual, validation.ReasonRateLimited)
			})
		})

		Convey("When the default reason text is rendered", func() {
			So(validation.RateLimitedReason(validation.DefaultRateLimitWindow), ShouldEqual, validation.ReasonRateLimited)
		})

		Convey("When the window has passed", func() {
			clock.Advance(5 * time.Second)

			Convey("Then the submission should be accepted", func() {
				So(v.Validate(ctx, score("p1", model.GameTyping, 90)), ShouldBeNil)
			})
		})

		Convey("When another game or player submits", func() {
			So(v.Validate(ctx, score("p1", model.GamePattern, 20)), ShouldBeNil)
			So(v.Validate(ctx, score("p2", model.GameTyping, 20)), ShouldBeNil)
		})

		Convey("When an acceptance is released", func() {
			v.Release(ctx, score("p1", model.GameTyping, 80))

			Convey("Then the player may submit again at once", func() {
				So(v.Validate(ctx, score("p1", model.GameTyping, 85)), ShouldBeNil)
			})
		})

		Convey("When stale entries are pruned", func() {
			clock.Advance(6 * time.Second)
			v.Prune()

			Convey("Then the ledger should be empty", func() {
				So(v.Size(), ShouldEqual, 0)
			})
		})
	})
}

func TestConcurrentSubmissions(t *testing.T) {
	Convey("Given many concurrent submissions for one key", t, func() {
		ctx := context.Background()
		v := validation.New()
		var accepted atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 64; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if v.Validate(ctx, score("racer", model.GamePattern, 50)) == nil {
					accepted.Add(1)
				}
			}()
		}
		wg.Wait()

		Convey("Then exactly one should be accepted", func() {
			So(accepted.Load(), ShouldEqual, 1)
		})
	})
}

func TestEventEnd(t *testing.T) {
	Convey("Given a validator with an event end", t, func() {
		ctx := context.Background()
		end := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
		clock := &fakeClock{t: end.Add(-time.Minute)}
		v := validation.New(validation.WithClock(clock.Now), validation.WithEventEnd(end))

		Convey("When submitting before the end", func() {
			So(v.Validate(ctx, score("p1", model.GameTyping, 80)), ShouldBeNil)
		})

		Convey("When submitting at or after the end", func() {
			clock.Advance(time.Minute)
			err := v.Validate(ctx, score("p1", model.GameReaction, 10))

			Convey("Then the event gate should win over content checks", func() {
				So(reasonOf(err), ShouldEqual, validation.ReasonEventEnded)
			})
		})
	})
}
