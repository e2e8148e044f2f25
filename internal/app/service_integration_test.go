package service_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/okian/scorehub/internal/adapters/http/api"
	"github.com/okian/scorehub/internal/adapters/ws"
	service "github.com/okian/scorehub/internal/app"
	"github.com/okian/scorehub/internal/config"
	"github.com/okian/scorehub/internal/domain/model"
	"github.com/okian/scorehub/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

// startStack runs a service on a SQLite file behind the full HTTP surface.
func startStack(dbPath string) (*service.Service, *httptest.Server) {
	svc := service.New(service.WithStorage(config.StorageSQLite, dbPath))
	So(svc.Start(context.Background()), ShouldBeNil)

	mux := http.NewServeMux()
	api.NewServer(svc, svc, api.WithRealtime(ws.NewHandler(svc.Hub()))).Register(context.Background(), mux)
	return svc, httptest.NewServer(mux)
}

func postScore(srv *httptest.Server, s model.Score) (int, types.SubmitResponse) {
	body, _ := json.Marshal(s)
	resp, err := http.Post(srv.URL+"/scores", "application/json", bytes.NewReader(body))
	So(err, ShouldBeNil)
	defer resp.Body.Close()
	var out types.SubmitResponse
	So(json.NewDecoder(resp.Body).Decode(&out), ShouldBeNil)
	return resp.StatusCode, out
}

func getJSON(srv *httptest.Server, path string, v any) {
	resp, err := http.Get(srv.URL + path)
	So(err, ShouldBeNil)
	defer resp.Body.Close()
	So(resp.StatusCode, ShouldEqual, http.StatusOK)
	So(json.NewDecoder(resp.Body).Decode(v), ShouldBeNil)
}

func readType(conn *websocket.Conn, t types.MessageType) types.Message {
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		_, data, err := conn.ReadMessage()
		So(err, ShouldBeNil)
		m, err := types.Decode(data)
		So(err, ShouldBeNil)
		if m.Type == t {
			return m
		}
	}
}

func TestIntegration(t *testing.T) {
	Convey("Given the full stack on a SQLite file", t, func() {
		dbPath := filepath.Join(t.TempDir(), "scores.db")
		svc, srv := startStack(dbPath)

		Convey("An HTTP submission is broadcast to sockets and persisted", func() {
			url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?id=watcher&name=Wendy"
			conn, _, err := websocket.DefaultDialer.Dial(url, nil)
			So(err, ShouldBeNil)
			defer conn.Close()
			readType(conn, types.TypeLeaderboard)

			code, resp := postScore(srv, model.Score{PlayerID: "p1", PlayerName: "Ann", Game: model.GameReaction, Score: 200})
			So(code, ShouldEqual, http.StatusOK)
			So(resp.OK, ShouldBeTrue)

			score := readType(conn, types.TypeScore)
			So(score.Score.PlayerID, ShouldEqual, "p1")
			board := readType(conn, types.TypeLeaderboard)
			So(board.Entries, ShouldHaveLength, 1)
			So(board.Entries[0].TotalScore, ShouldEqual, 600)

			Convey("and a resubmission inside the window is refused", func() {
				code, resp := postScore(srv, model.Score{PlayerID: "p1", PlayerName: "Ann", Game: model.GameReaction, Score: 190})
				So(code, ShouldEqual, http.StatusBadRequest)
				So(resp.Error, ShouldEqual, "Rate limited - wait 5s between scores")
			})

			Convey("and it survives a restart", func() {
				conn.Close()
				srv.Close()
				So(svc.Stop(context.Background()), ShouldBeNil)

				svc2, srv2 := startStack(dbPath)
				defer func() {
					srv2.Close()
					_ = svc2.Stop(context.Background())
				}()

				var recent []model.Score
				getJSON(srv2, "/scores", &recent)
				So(recent, ShouldHaveLength, 1)
				So(recent[0].Score, ShouldEqual, 200)

				var entries []model.LeaderboardEntry
				getJSON(srv2, "/leaderboard?game=reaction", &entries)
				So(entries, ShouldHaveLength, 1)
				best, ok := entries[0].Best(model.GameReaction)
				So(ok, ShouldBeTrue)
				So(best, ShouldEqual, 200)
			})
		})

		Convey("Invalid submissions are rejected with their reason", func() {
			code, resp := postScore(srv, model.Score{PlayerID: "p1", Game: model.GameTyping, Score: 999})
			So(code, ShouldEqual, http.StatusBadRequest)
			So(resp.OK, ShouldBeFalse)
			So(resp.Error, ShouldEqual, "WPM too high")

			var recent []model.Score
			getJSON(srv, "/scores", &recent)
			So(recent, ShouldBeEmpty)
		})

		Reset(func() {
			srv.Close()
			_ = svc.Stop(context.Background())
		})
	})
}
