package loadgen_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/okian/scorehub/internal/adapters/http/api"
	"github.com/okian/scorehub/internal/adapters/repository"
	"github.com/okian/scorehub/internal/domain/model"
	"github.com/okian/scorehub/internal/domain/scoring"
	"github.com/okian/scorehub/internal/domain/types"
	"github.com/okian/scorehub/internal/domain/validation"
	"github.com/okian/scorehub/internal/hub"
	"github.com/okian/scorehub/internal/loadgen"
	"github.com/okian/scorehub/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

type noStats struct{}

func (noStats) GetStats() map[string]interface{} { return map[string]interface{}{} }

// fakeHub answers the REST surface with canned responses.
func fakeHub(status int, ack types.SubmitResponse, board []model.LeaderboardEntry) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte("scorehub vfake"))
	})
	mux.HandleFunc("POST /scores", func(w http.ResponseWriter, r *http.Request) {
		if !ack.OK {
			w.WriteHeader(http.StatusBadRequest)
		}
		_ = json.NewEncoder(w).Encode(ack)
	})
	mux.HandleFunc("GET /leaderboard", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(board)
	})
	return httptest.NewServer(mux)
}

func TestRun(t *testing.T) {
	_ = logger.Init()

	Convey("Given a real hub", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		store := repository.NewMemoryStore()
		h := hub.New(store, validation.New(), scoring.NewAggregator(scoring.WithLimit(100)))
		go h.Run(ctx)

		mux := http.NewServeMux()
		api.NewServer(h, noStats{}).Register(ctx, mux)
		srv := httptest.NewServer(mux)
		Reset(func() {
			srv.Close()
			cancel()
		})

		Convey("Every generated score is accepted and verified", func() {
			stats, err := loadgen.Run(context.Background(), loadgen.Config{
				BaseURL: srv.URL,
				Players: 6,
				Workers: 3,
			})
			So(err, ShouldBeNil)
			So(stats.ScoresGenerated, ShouldEqual, 18)
			So(stats.ScoresAccepted, ShouldEqual, 18)
			So(stats.ScoresRejected, ShouldEqual, 0)
			So(stats.Verified, ShouldEqual, 6)
			So(stats.Leaderboard, ShouldHaveLength, 6)

			n, err := store.Count(context.Background())
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 18)
		})
	})

	Convey("Given an unhealthy hub", t, func() {
		srv := fakeHub(http.StatusServiceUnavailable, types.SubmitResponse{OK: true}, nil)
		defer srv.Close()

		_, err := loadgen.Run(context.Background(), loadgen.Config{BaseURL: srv.URL, Players: 1})
		So(errors.Is(err, loadgen.ErrUnhealthy), ShouldBeTrue)
	})

	Convey("Given a hub that refuses everything", t, func() {
		srv := fakeHub(http.StatusOK, types.SubmitResponse{Error: validation.ReasonEventEnded}, nil)
		defer srv.Close()

		stats, err := loadgen.Run(context.Background(), loadgen.Config{BaseURL: srv.URL, Players: 2})
		So(errors.Is(err, loadgen.ErrNothingAccepted), ShouldBeTrue)
		So(stats.ScoresRejected, ShouldEqual, 6)
		So(stats.Rejections[validation.ReasonEventEnded], ShouldEqual, 6)
	})

	Convey("Given a hub serving a misordered leaderboard", t, func() {
		board := []model.LeaderboardEntry{
			{PlayerID: "x1", TotalScore: 10},
			{PlayerID: "x2", TotalScore: 90},
		}
		srv := fakeHub(http.StatusOK, types.SubmitResponse{OK: true}, board)
		defer srv.Close()

		_, err := loadgen.Run(context.Background(), loadgen.Config{BaseURL: srv.URL, Players: 1})
		So(errors.Is(err, loadgen.ErrMismatch), ShouldBeTrue)
	})

	Convey("Given a hub serving other players only", t, func() {
		board := []model.LeaderboardEntry{{PlayerID: "x1", TotalScore: 10}}
		srv := fakeHub(http.StatusOK, types.SubmitResponse{OK: true}, board)
		defer srv.Close()

		stats, err := loadgen.Run(context.Background(), loadgen.Config{BaseURL: srv.URL, Players: 2})
		So(err, ShouldBeNil)
		So(stats.ScoresAccepted, ShouldEqual, 6)
		So(stats.Verified, ShouldEqual, 0)
	})
}
