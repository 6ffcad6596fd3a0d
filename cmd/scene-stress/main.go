package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"runtime"
	"time"

	"github.com/pkg/profile"
	"go.uber.org/zap"

	"github.com/plus3/stagehand/ecs"
)

func main() {
	durationFlag := flag.Duration("duration", 10*time.Second, "total run duration")
	entityFlag := flag.Int("entities", 0, "initial entity count (overrides config)")
	configFlag := flag.String("config", "", "path to TOML config file")
	profileFlag := flag.String("profile", "", "enable profiling: cpu or mem")
	verboseFlag := flag.Bool("v", false, "verbose logging")
	flag.Parse()

	logger, err := newLogger(*verboseFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	switch *profileFlag {
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
	case "mem":
		defer profile.Start(profile.MemProfile, profile.ProfilePath(".")).Stop()
	case "":
	default:
		logger.Fatal("unknown profile mode", zap.String("mode", *profileFlag))
	}

	cfg, err := loadConfig(*configFlag)
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}
	if *entityFlag > 0 {
		cfg.Entities = *entityFlag
	}

	if err := run(cfg, *durationFlag, logger); err != nil {
		logger.Fatal("stress run failed", zap.Error(err))
	}
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(cfg Config, runFor time.Duration, logger *zap.Logger) error {
	registry := ecs.NewComponentRegistry()
	registerStressComponents(registry)

	pools := ecs.NewPoolManager(logger)
	particles := ecs.RegisterComponentPool(pools, registry,
		func() *Particle { return &Particle{} }, cfg.PoolTiers...)
	particles.WarmUp(cfg.PoolTiers[0])

	scene := ecs.NewScene(registry,
		ecs.WithSceneLogger(logger),
		ecs.WithScenePools(pools),
		ecs.WithSceneSnapshotCache(cfg.SnapshotCache),
	)
	scene.AddSystem(physicsSystem{})
	scene.AddSystem(decaySystem{})
	if err := scene.Begin(); err != nil {
		return err
	}

	logger.Info("populating scene", zap.Int("entities", cfg.Entities))
	for _, e := range scene.CreateEntities(cfg.Entities, "actor_") {
		scene.Storage().AddComponent(e, randomKinematic())
		if rand.Intn(4) == 0 {
			scene.Storage().AddComponent(e, randomLoadout())
		}
	}

	report := &Report{Config: cfg, Duration: runFor}
	runtime.ReadMemStats(&report.MemStatsStart)

	logger.Info("running", zap.Duration("for", runFor))
	deadline := time.Now().Add(runFor)
	start := time.Now()
	lastTick := start

	frame := 0
	for time.Now().Before(deadline) {
		now := time.Now()
		dt := now.Sub(lastTick).Seconds()
		lastTick = now

		tickStart := time.Now()
		scene.Update(dt)
		report.UpdateTime.Samples = append(report.UpdateTime.Samples, time.Since(tickStart))

		churn(scene, particles, cfg.ChurnPerTick)
		pools.Update(cfg.CompactBudget.Duration)

		frame++
		if frame%cfg.SnapshotEvery == 0 {
			snapshotTick(scene, report, frame, logger)
		}
		if cfg.RestoreEvery > 0 && frame%cfg.RestoreEvery == 0 {
			restoreTick(scene, report, logger)
		}
	}

	report.TotalTime = time.Since(start)
	report.TotalUpdates = int64(frame)
	report.FinalEntities = scene.Container().Len()
	report.UpdateTime.Finalize()
	report.CaptureTime.Finalize()
	report.PoolStats = pools.CollectStats()
	report.StorageStats = scene.Storage().CollectStats()
	report.SceneStats = scene.Stats()
	runtime.ReadMemStats(&report.MemStatsEnd)

	scene.End()

	fmt.Println("\n--- Scene Stress Report ---")
	if err := report.Generate(os.Stdout); err != nil {
		return err
	}
	fmt.Println("--- End of Report ---")
	return nil
}

// churn destroys a few entities, creates replacements, and sprays pooled
// particles so every structural path stays hot.
func churn(scene *ecs.Scene, particles *ecs.ComponentPool[*Particle], n int) {
	container := scene.Container()
	for i := 0; i < n; i++ {
		if victim := container.FindByName(fmt.Sprintf("actor_%d", rand.Intn(container.Len()+1))); victim != nil {
			scene.DestroyEntity(victim)
		}

		e := scene.CreateEntity(fmt.Sprintf("spawn_%d", rand.Int()))
		scene.Storage().AddComponent(e, randomKinematic())
		p := particles.Obtain()
		p.Life = 1 + rand.Float64()
		p.Fade = 0.5 + rand.Float64()
		scene.Storage().AddComponent(e, p)
	}
}

func snapshotTick(scene *ecs.Scene, report *Report, frame int, logger *zap.Logger) {
	captureStart := time.Now()

	if _, ok := scene.Snapshots().Cached("base"); !ok {
		_, cr := scene.CaptureSnapshot("base")
		report.FullCaptures++
		report.SkippedComponents += cr.SkippedComponents
	} else {
		_, cr, err := scene.CaptureIncrementalSnapshot(fmt.Sprintf("diff_%d", frame), "base")
		if err != nil {
			logger.Warn("incremental capture failed", zap.Error(err))
			return
		}
		report.IncrementalCaptures++
		report.ConservativeChanges += cr.ConservativeChanges
		report.SkippedComponents += cr.SkippedComponents
	}
	report.CaptureTime.Samples = append(report.CaptureTime.Samples, time.Since(captureStart))
}

func restoreTick(scene *ecs.Scene, report *Report, logger *zap.Logger) {
	rr, err := scene.RestoreSnapshot("base", ecs.RestoreOptions{CreateMissing: true})
	if err != nil {
		logger.Warn("restore failed", zap.Error(err))
		return
	}
	report.Restores++
	report.EntitiesRestored += rr.EntitiesRestored + rr.EntitiesCreated
}
