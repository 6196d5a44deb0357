// Command colonyd runs one colonial strategy game: the turn loop, the
// player websocket endpoint, and the HTTP API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/talgya/colonyserver/internal/api"
	"github.com/talgya/colonyserver/internal/config"
	"github.com/talgya/colonyserver/internal/engine"
	"github.com/talgya/colonyserver/internal/entropy"
	"github.com/talgya/colonyserver/internal/game"
	"github.com/talgya/colonyserver/internal/interaction"
	"github.com/talgya/colonyserver/internal/persistence"
	"github.com/talgya/colonyserver/internal/social"
	"github.com/talgya/colonyserver/internal/transport"
	"github.com/talgya/colonyserver/internal/units"
	"github.com/talgya/colonyserver/internal/world"
)

func main() {
	configPath := flag.String("config", os.Getenv("COLONY_CONFIG"), "path to the YAML configuration")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.Level(),
	}))
	slog.SetDefault(logger)

	// ── Database ──────────────────────────────────────────────────────
	os.MkdirAll(filepath.Dir(cfg.DBPath), 0755)
	db, err := persistence.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", cfg.DBPath)

	// ── Load or Generate Game ────────────────────────────────────────
	g, err := db.LoadGame()
	seed := cfg.Seed
	switch {
	case err == nil:
		if s, err := db.GetMeta("seed"); err == nil {
			if v, err := strconv.ParseInt(s, 10, 64); err == nil {
				seed = v
			}
		}
		slog.Info("game restored", "game", g.ID, "turn", g.Turn, "date", engine.DateString(g.Turn))
	case errors.Is(err, persistence.ErrNoGame):
		if seed == 0 {
			if seed, err = entropy.NewSeed(); err != nil {
				slog.Error("seed failed", "error", err)
				os.Exit(1)
			}
		}
		slog.Info("no saved game found, generating a new one...", "seed", seed)
		g = newGame(cfg, seed)
		if err := db.SaveGame(g); err != nil {
			slog.Error("initial save failed", "error", err)
			os.Exit(1)
		}
		if err := db.SaveMeta("seed", strconv.FormatInt(seed, 10)); err != nil {
			slog.Error("saving seed failed", "error", err)
		}
	default:
		slog.Error("failed to load game", "error", err)
		os.Exit(1)
	}

	slog.Info("game ready",
		"players", len(g.Players),
		"settlements", len(g.AllSettlements()),
		"units", len(g.AllUnits()),
		"tiles", humanize.Comma(int64(g.Map.TileCount())),
	)

	// ── Engine and Loop ──────────────────────────────────────────────
	eng := engine.New(g, nil, interaction.Timeouts{
		Diplomacy:    cfg.Timeouts.Diplomacy,
		NativeDemand: cfg.Timeouts.NativeDemand,
		Mercenaries:  cfg.Timeouts.Mercenaries,
	})

	hub := transport.NewHub(logger)
	sinks := []engine.Sink{hub, db}
	var ticks *persistence.TickLog
	if cfg.TickLogDir != "" {
		ticks = persistence.NewTickLog(cfg.TickLogDir, cfg.TurnsPerLogFile)
		defer ticks.Close()
		sinks = append(sinks, ticks)
	}

	// The rules stream continues from the saved turn so a restart does not
	// replay the dice of turn one.
	rng := entropy.New(seed, entropy.StreamRules+int64(g.Turn))
	loop := engine.NewLoop(eng, rng, logger, engine.LoopConfig{
		TurnInterval: cfg.TurnInterval,
		PollInterval: cfg.PollInterval,
	}, sinks...)
	hub.Bind(loop)

	saveEvery := max(cfg.SaveEveryTurns, 1)
	loop.OnTurn = func(g *game.Game, stats engine.TurnStats) {
		if g.Turn%saveEvery != 0 {
			return
		}
		start := time.Now()
		if err := db.SaveGame(g); err != nil {
			slog.Error("turn save failed", "turn", g.Turn, "error", err)
			return
		}
		slog.Debug("game saved", "turn", g.Turn, "took", time.Since(start))
	}

	// ── HTTP API ──────────────────────────────────────────────────────
	if cfg.AdminKey == "" {
		slog.Warn("COLONY_ADMIN_KEY not set, admin POST endpoints will be disabled")
	}
	apiServer := &api.Server{
		Loop:     loop,
		DB:       db,
		Players:  hub,
		Addr:     cfg.HTTPAddr,
		AdminKey: cfg.AdminKey,
	}
	srv := apiServer.Start()

	// ── Start ─────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Printf("\nGame %s: %d nations, %d settlements, %s\n",
		g.ID, len(g.Players), len(g.AllSettlements()), engine.DateString(g.Turn))
	fmt.Printf("API: http://localhost%s/api/v1/status\n", cfg.HTTPAddr)
	fmt.Println("Starting game loop... (Ctrl+C to stop)")

	if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("game loop failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	hub.Close()
	srv.Shutdown(shutdownCtx)

	// Final save on shutdown. The loop has stopped, so the game is ours.
	slog.Info("final save...")
	if err := db.SaveGame(g); err != nil {
		slog.Error("final save failed", "error", err)
	}
	fmt.Println("Game stopped. State saved.")
}

// newGame generates a map and sets up the starting roster: every
// colonizing nation lands a small party on the coast and every tribe
// gets a capital with camps around it.
func newGame(cfg config.Config, seed int64) *game.Game {
	m := world.Generate(world.GenConfig{
		Radius:        cfg.Map.Radius,
		Seed:          entropy.Derive(seed, entropy.StreamMap),
		SeaLevel:      cfg.Map.SeaLevel,
		MountainLevel: cfg.Map.MountainLevel,
	})

	colonials := 0
	for _, pc := range cfg.Players {
		if !pc.Royal {
			colonials++
		}
	}
	sites := world.PlaceSites(m, entropy.Derive(seed, entropy.StreamPlacement), world.PlacementConfig{
		Tribes:              len(cfg.Tribes),
		SettlementsPerTribe: cfg.Map.Settlements,
		Colonials:           colonials,
	})

	g := game.New(m)
	var landing []world.PlayerID
	next := world.PlayerID(1)
	for _, pc := range cfg.Players {
		kind := social.KindColonial
		if pc.Royal {
			kind = social.KindRoyal
		}
		gold := pc.Gold
		if gold == 0 {
			gold = cfg.StartingGold
		}
		g.AddPlayer(social.NewPlayer(next, pc.Name, pc.Nation, kind, gold))
		if !pc.Royal {
			landing = append(landing, next)
		}
		next++
	}
	tribes := make([]world.PlayerID, len(cfg.Tribes))
	for i, tc := range cfg.Tribes {
		tribes[i] = next
		g.AddPlayer(social.NewPlayer(next, tc.Name, tc.Name, social.KindNative, 0))
		next++
	}

	for _, site := range sites {
		switch site.Kind {
		case world.SiteNative:
			owner := tribes[site.Tribe]
			ns := g.FoundNativeSettlement(owner, site.Name, site.Coord, site.Capital)
			ns.Treasure = 100 + int(site.Score*25)
			brave := g.NewUnit(units.TypeBrave, owner, site.Coord)
			brave.HomeSettlement = ns.ID
			g.JoinSettlement(brave, ns, 0)
		case world.SiteColonial:
			owner := landing[site.Tribe]
			c := g.FoundColony(owner, site.Name, site.Coord)
			for range 2 {
				g.JoinSettlement(g.NewUnit(units.TypeFreeColonist, owner, site.Coord), c, 0)
			}
			g.NewUnit(units.TypeVeteranSoldier, owner, site.Coord)
		}
	}

	if placed := countKind(sites, world.SiteColonial); placed < colonials {
		slog.Warn("not enough coast for every nation", "nations", colonials, "landings", placed)
	}
	return g
}

func countKind(sites []world.Site, kind world.SiteKind) int {
	n := 0
	for _, s := range sites {
		if s.Kind == kind {
			n++
		}
	}
	return n
}
