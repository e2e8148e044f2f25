package hub_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/scorehub/internal/adapters/repository"
	"github.com/okian/scorehub/internal/domain/model"
	"github.com/okian/scorehub/internal/domain/scoring"
	"github.com/okian/scorehub/internal/domain/types"
	"github.com/okian/scorehub/internal/domain/validation"
	"github.com/okian/scorehub/internal/hub"
	"github.com/okian/scorehub/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

type fixture struct {
	ctx    context.Context
	cancel context.CancelFunc
	store  *repository.MemoryStore
	hub    *hub.Hub
}

func newFixture(opts ...hub.Option) *fixture {
	_ = logger.Init()
	ctx, cancel := context.WithCancel(context.Background())
	store := repository.NewMemoryStore()
	h := hub.New(store, validation.New(), scoring.NewAggregator(), opts...)
	go h.Run(ctx)
	return &fixture{ctx: ctx, cancel: cancel, store: store, hub: h}
}

// drain returns every frame currently queued for c.
func drain(c *hub.Conn) []types.Message {
	var out []types.Message
	for {
		select {
		case f, ok := <-c.Queue().Dequeue():
			if !ok {
				return out
			}
			m, err := types.Decode(f)
			So(err, ShouldBeNil)
			out = append(out, m)
		default:
			return out
		}
	}
}

func typesOf(ms []types.Message) []types.MessageType {
	out := make([]types.MessageType, len(ms))
	for i, m := range ms {
		out[i] = m.Type
	}
	return out
}

func connect(f *fixture, id, name string) *hub.Conn {
	c, err := f.hub.Connect(f.ctx, model.Player{ID: id, Name: name})
	So(err, ShouldBeNil)
	return c
}

func TestConnect(t *testing.T) {
	Convey("Given a running hub", t, func() {
		f := newFixture()
		defer f.cancel()

		Convey("When the first player connects", func() {
			a := connect(f, "a", "Alice")
			msgs := drain(a)

			Convey("Then it should get players and an empty leaderboard but no scores", func() {
				So(typesOf(msgs), ShouldResemble, []types.MessageType{types.TypePlayers, types.TypeLeaderboard})
				So(msgs[0].Players, ShouldResemble, []model.Player{{ID: "a", Name: "Alice"}})
				So(msgs[1].Entries, ShouldBeEmpty)
			})
		})

		Convey("When a second player connects after a score exists", func() {
			a := connect(f, "a", "Alice")
			So(f.hub.Submit(f.ctx, model.Score{PlayerID: "a", PlayerName: "Alice", Game: model.GameTyping, Score: 80}), ShouldBeNil)
			drain(a)

			b := connect(f, "b", "Bob")

			Convey("Then the first player sees a join", func() {
				msgs := drain(a)
				So(typesOf(msgs), ShouldResemble, []types.MessageType{types.TypeJoin})
				So(msgs[0].Player.ID, ShouldEqual, "b")
			})

			Convey("Then the new player gets the full snapshot", func() {
				msgs := drain(b)
				So(typesOf(msgs), ShouldResemble, []types.MessageType{types.TypePlayers, types.TypeScores, types.TypeLeaderboard})
				So(msgs[0].Players, ShouldHaveLength, 2)
				So(msgs[1].Scores, ShouldHaveLength, 1)
				So(msgs[2].Entries[0].PlayerID, ShouldEqual, "a")
			})
		})

		Convey("When a player connects without id or name", func() {
			c := connect(f, "", "")

			Convey("Then defaults should be assigned", func() {
				So(c.Player().Name, ShouldEqual, model.DefaultPlayerName)
				So(c.Player().ID, ShouldHaveLength, 8)
			})
		})

		Convey("When the same player id reconnects", func() {
			old := connect(f, "a", "Alice")
			other := connect(f, "b", "Bob")
			drain(old)
			drain(other)
			fresh := connect(f, "a", "Alice2")

			Convey("Then the old connection stays open without a leave", func() {
				So(old.Queue().IsClosed(), ShouldBeFalse)
				So(typesOf(drain(other)), ShouldResemble, []types.MessageType{types.TypeJoin})
				So(typesOf(drain(old)), ShouldResemble, []types.MessageType{types.TypeJoin})

				players, err := f.hub.Players(f.ctx)
				So(err, ShouldBeNil)
				So(players, ShouldResemble, []model.Player{{ID: "a", Name: "Alice2"}, {ID: "b", Name: "Bob"}})
				So(f.hub.Stats().Connections, ShouldEqual, 3)
				So(f.hub.Stats().Players, ShouldEqual, 2)
			})

			Convey("Then both connections of the player receive broadcasts", func() {
				drain(old)
				drain(fresh)
				So(f.hub.Submit(f.ctx, model.Score{PlayerID: "b", PlayerName: "Bob", Game: model.GameTyping, Score: 60}), ShouldBeNil)
				So(typesOf(drain(old)), ShouldResemble, []types.MessageType{types.TypeScore, types.TypeLeaderboard})
				So(typesOf(drain(fresh)), ShouldResemble, []types.MessageType{types.TypeScore, types.TypeLeaderboard})
			})

			Convey("Then a late disconnect of the old connection is silent", func() {
				drain(other)
				So(f.hub.Disconnect(f.ctx, old), ShouldBeNil)
				So(drain(other), ShouldBeEmpty)
				So(f.hub.Stats().Players, ShouldEqual, 2)
				So(f.hub.Stats().Connections, ShouldEqual, 2)
				So(fresh.Queue().IsClosed(), ShouldBeFalse)
			})
		})
	})
}

func TestSubmit(t *testing.T) {
	Convey("Given two connected players", t, func() {
		f := newFixture()
		defer f.cancel()
		a := connect(f, "a", "Alice")
		b := connect(f, "b", "Bob")
		drain(a)
		drain(b)

		Convey("When a valid score is submitted", func() {
			err := f.hub.Submit(f.ctx, model.Score{PlayerID: "a", PlayerName: "Alice", Game: model.GameReaction, Score: 180})

			Convey("Then everyone sees the score before the leaderboard", func() {
				So(err, ShouldBeNil)
				for _, c := range []*hub.Conn{a, b} {
					msgs := drain(c)
					So(typesOf(msgs), ShouldResemble, []types.MessageType{types.TypeScore, types.TypeLeaderboard})
					So(msgs[0].Score.Score, ShouldEqual, 180)
					So(msgs[0].Score.Timestamp, ShouldBeGreaterThan, 0)
					So(msgs[1].Entries[0].TotalScore, ShouldEqual, 2*320)
				}
			})
		})

		Convey("When an out-of-range score is submitted", func() {
			err := f.hub.Submit(f.ctx, model.Score{PlayerID: "a", Game: model.GameReaction, Score: 40})

			Convey("Then the reason is returned and nothing is broadcast", func() {
				So(hub.IsRejected(err), ShouldBeTrue)
				reason, _ := validation.Reason(err)
				So(reason, ShouldEqual, validation.ReasonReactionFast)
				So(drain(a), ShouldBeEmpty)
				So(drain(b), ShouldBeEmpty)
			})
		})

		Convey("When two players post typing scores", func() {
			So(f.hub.Submit(f.ctx, model.Score{PlayerID: "a", PlayerName: "Alice", Game: model.GameTyping, Score: 80}), ShouldBeNil)
			So(f.hub.Submit(f.ctx, model.Score{PlayerID: "b", PlayerName: "Bob", Game: model.GameTyping, Score: 60}), ShouldBeNil)

			Convey("Then the leaderboard ranks the 80-scorer first", func() {
				entries, err := f.hub.Leaderboard(f.ctx, nil)
				So(err, ShouldBeNil)
				So(entries, ShouldHaveLength, 2)
				So(entries[0].PlayerID, ShouldEqual, "a")
				So(entries[1].PlayerID, ShouldEqual, "b")
			})
		})

		Convey("When the store fails", func() {
			f.store.FailAppends(errors.New("disk gone"))
			s := model.Score{PlayerID: "a", Game: model.GamePattern, Score: 10}
			err := f.hub.Submit(f.ctx, s)

			Convey("Then a storage fault is returned without broadcast", func() {
				So(errors.Is(err, repository.ErrStorage), ShouldBeTrue)
				So(drain(b), ShouldBeEmpty)
				So(f.hub.Stats().Failed, ShouldEqual, 1)
			})

			Convey("Then the player may retry at once after recovery", func() {
				f.store.FailAppends(nil)
				So(f.hub.Submit(f.ctx, s), ShouldBeNil)
			})
		})

		Convey("When a socket submission lacks player fields", func() {
			f.hub.SubmitFromSocket(f.ctx, b, model.Score{Game: model.GamePattern, Score: 12})

			Convey("Then the connection's player is used", func() {
				recent, err := f.hub.RecentScores(f.ctx)
				So(err, ShouldBeNil)
				So(recent, ShouldHaveLength, 1)
				So(recent[0].PlayerID, ShouldEqual, "b")
				So(recent[0].PlayerName, ShouldEqual, "Bob")
			})
		})

		Convey("When the same player races submissions", func() {
			var accepted atomic.Int32
			var wg sync.WaitGroup
			for i := 0; i < 16; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if f.hub.Submit(f.ctx, model.Score{PlayerID: "a", Game: model.GameTyping, Score: 99}) == nil {
						accepted.Add(1)
					}
				}()
			}
			wg.Wait()

			Convey("Then only one is accepted", func() {
				So(accepted.Load(), ShouldEqual, 1)
				So(f.hub.Stats().Rejected, ShouldEqual, 15)
			})
		})
	})
}

func TestPresence(t *testing.T) {
	Convey("Given two connected players", t, func() {
		f := newFixture()
		defer f.cancel()
		a := connect(f, "a", "Alice")
		b := connect(f, "b", "Bob")
		drain(a)
		drain(b)

		Convey("When one disconnects twice", func() {
			So(f.hub.Disconnect(f.ctx, a), ShouldBeNil)
			So(f.hub.Disconnect(f.ctx, a), ShouldBeNil)

			Convey("Then the other sees exactly one leave with only the id", func() {
				msgs := drain(b)
				So(typesOf(msgs), ShouldResemble, []types.MessageType{types.TypeLeave})
				So(msgs[0].PlayerID, ShouldEqual, "a")
				So(f.hub.Stats().Players, ShouldEqual, 1)
				So(f.hub.Stats().Connections, ShouldEqual, 1)
			})
		})

		Convey("When a player announces a game", func() {
			So(f.hub.AnnouncePlaying(f.ctx, a, model.GamePattern), ShouldBeNil)
			So(f.hub.AnnouncePlaying(f.ctx, a, model.Game("chess")), ShouldBeNil)

			Convey("Then only the others hear about it once", func() {
				So(drain(a), ShouldBeEmpty)
				msgs := drain(b)
				So(typesOf(msgs), ShouldResemble, []types.MessageType{types.TypePlaying})
				So(msgs[0].Player.ID, ShouldEqual, "a")
				So(msgs[0].Game, ShouldEqual, model.GamePattern)
			})
		})

		Convey("When a disconnected player announces a game", func() {
			So(f.hub.Disconnect(f.ctx, a), ShouldBeNil)
			drain(b)
			So(f.hub.AnnouncePlaying(f.ctx, a, model.GameTyping), ShouldBeNil)

			So(drain(b), ShouldBeEmpty)
		})
	})
}

func TestSlowConsumer(t *testing.T) {
	Convey("Given a hub with tiny send buffers and a reader that never drains", t, func() {
		f := newFixture(hub.WithSendBuffer(4))
		defer f.cancel()
		stuck := connect(f, "stuck", "Stuck")
		live := connect(f, "live", "Live")
		drain(live)

		Convey("When broadcasts overflow the stuck queue", func() {
			for _, p := range []string{"p1", "p2", "p3"} {
				So(f.hub.Submit(f.ctx, model.Score{PlayerID: p, Game: model.GameTyping, Score: 10}), ShouldBeNil)
			}

			Convey("Then the stuck connection is evicted and others see it leave", func() {
				So(stuck.Queue().IsClosed(), ShouldBeTrue)
				var left []string
				for _, m := range drain(live) {
					if m.Type == types.TypeLeave {
						left = append(left, m.PlayerID)
					}
				}
				So(left, ShouldResemble, []string{"stuck"})
				So(f.hub.Stats().Evicted, ShouldEqual, 1)
			})
		})
	})
}

func TestStop(t *testing.T) {
	Convey("Given a running hub with a connection", t, func() {
		f := newFixture()
		defer f.cancel()
		c := connect(f, "a", "Alice")

		Convey("When it is stopped", func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			So(f.hub.Stop(ctx), ShouldBeNil)

			Convey("Then connections are closed and operations fail", func() {
				So(c.Queue().IsClosed(), ShouldBeTrue)
				_, err := f.hub.Connect(f.ctx, model.Player{ID: "b"})
				So(errors.Is(err, hub.ErrStopped), ShouldBeTrue)
				err = f.hub.Submit(f.ctx, model.Score{PlayerID: "a", Game: model.GameTyping, Score: 1})
				So(errors.Is(err, hub.ErrStopped), ShouldBeTrue)
			})
		})
	})
}
