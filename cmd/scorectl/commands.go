package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/okian/scorehub/internal/client"
	"github.com/okian/scorehub/internal/domain/model"
	"github.com/okian/scorehub/internal/domain/types"
	"github.com/okian/scorehub/internal/domain/validation"
	"github.com/okian/scorehub/internal/loadgen"
)

func (c *Config) player() model.Player {
	p := model.Player{ID: c.id, Name: c.name}
	if p.ID == "" {
		p.ID = model.NewPlayerID()
	}
	if p.Name == "" {
		p.Name = client.RandomName()
	}
	return p
}

func runWatch(ctx context.Context, cfg *Config, out io.Writer) error {
	m := client.NewManager(cfg.player(), &client.WSDialer{URL: cfg.websocketURL()})
	defer m.Disconnect()

	p := m.Player()
	fmt.Fprintf(out, "watching %s as %s (%s)\n", cfg.server, p.Name, p.ID)
	m.Connect()

	for {
		select {
		case <-ctx.Done():
			return nil
		case e := <-m.Events():
			if e.Message == nil {
				fmt.Fprintf(out, "* %s\n", e.State)
				continue
			}
			printMessage(out, *e.Message)
		}
	}
}

func printMessage(out io.Writer, msg types.Message) {
	switch msg.Type {
	case types.TypePlayers:
		fmt.Fprintf(out, "* %d players online\n", len(msg.Players))
	case types.TypeJoin:
		fmt.Fprintf(out, "+ %s joined\n", playerName(msg.Player))
	case types.TypeLeave:
		fmt.Fprintf(out, "- %s left\n", msg.PlayerID)
	case types.TypePlaying:
		fmt.Fprintf(out, "> %s is playing %s\n", playerName(msg.Player), msg.Game)
	case types.TypeScore:
		fmt.Fprintf(out, "! %s scored %d in %s\n", msg.Score.PlayerName, msg.Score.Score, msg.Score.Game)
	case types.TypeLeaderboard:
		if len(msg.Entries) > 0 {
			e := msg.Entries[0]
			fmt.Fprintf(out, "# leader: %s (%.1f)\n", e.PlayerName, e.TotalScore)
		}
	}
}

// playerName tolerates frames that arrive without a player.
func playerName(p *model.Player) string {
	if p == nil {
		return "someone"
	}
	return p.Name
}

func runSubmit(ctx context.Context, cfg *Config, out io.Writer, game, value string) error {
	g, err := model.ParseGame(game)
	if err != nil {
		return err
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid score %q: %w", value, err)
	}

	p := cfg.player()
	api := client.NewHTTPClient(cfg.server, cfg.timeout)
	err = api.PostScore(ctx, model.Score{
		PlayerID:   p.ID,
		PlayerName: p.Name,
		Game:       g,
		Score:      n,
		Timestamp:  time.Now().UnixMilli(),
	})
	if reason, ok := validation.Reason(err); ok {
		fmt.Fprintf(out, "rejected: %s\n", reason)
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "accepted: %s %s %d\n", p.Name, g, n)
	return nil
}

func runLeaderboard(ctx context.Context, cfg *Config, out io.Writer) error {
	var filter *model.Game
	if cfg.game != "" {
		g, err := model.ParseGame(cfg.game)
		if err != nil {
			return err
		}
		filter = &g
	}

	entries := client.NewHTTPClient(cfg.server, cfg.timeout).FetchLeaderboard(ctx, filter)
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tPLAYER\tTOTAL\tREACTION\tTYPING\tPATTERN")
	for i, e := range entries {
		fmt.Fprintf(w, "%d\t%s\t%.1f", i+1, e.PlayerName, e.TotalScore)
		for _, g := range model.Games {
			if v, ok := e.Best(g); ok {
				fmt.Fprintf(w, "\t%d", v)
			} else {
				fmt.Fprint(w, "\t-")
			}
		}
		fmt.Fprintln(w)
	}
	return w.Flush()
}

func runScores(ctx context.Context, cfg *Config, out io.Writer) error {
	scores := client.NewHTTPClient(cfg.server, cfg.timeout).FetchScores(ctx)
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tPLAYER\tGAME\tSCORE")
	for _, s := range scores {
		ts := time.UnixMilli(s.Timestamp).Format(time.TimeOnly)
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", ts, s.PlayerName, s.Game, s.Score)
	}
	return w.Flush()
}

func runLoadgen(ctx context.Context, cfg *Config, out io.Writer) error {
	stats, err := loadgen.Run(ctx, loadgen.Config{
		BaseURL: cfg.server,
		Players: cfg.players,
		Workers: cfg.workers,
		Timeout: cfg.timeout,
		Settle:  cfg.settle,
		Verbose: cfg.verbose,
	})
	if stats != nil {
		fmt.Fprintf(out, "submitted %d, accepted %d, rejected %d, failed %d, verified %d players\n",
			stats.ScoresSubmitted, stats.ScoresAccepted, stats.ScoresRejected, stats.ScoresFailed, stats.Verified)
	}
	return err
}
