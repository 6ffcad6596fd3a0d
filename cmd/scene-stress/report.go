package main

import (
	"io"
	"runtime"
	"text/template"
	"time"

	"github.com/plus3/stagehand/ecs"
)

type Report struct {
	Config   Config
	Duration time.Duration

	TotalUpdates  int64
	TotalTime     time.Duration
	FinalEntities int
	UpdateTime    Stats
	CaptureTime   Stats

	FullCaptures        int
	IncrementalCaptures int
	Restores            int
	EntitiesRestored    int
	SkippedComponents   int
	ConservativeChanges int

	PoolStats    map[string]ecs.PoolStats
	StorageStats ecs.StorageStats
	SceneStats   ecs.SceneStats

	MemStatsStart runtime.MemStats
	MemStatsEnd   runtime.MemStats
}

type Stats struct {
	Min     time.Duration
	Max     time.Duration
	Avg     time.Duration
	Samples []time.Duration
}

func (s *Stats) Finalize() {
	if len(s.Samples) == 0 {
		return
	}

	var total time.Duration
	s.Min = s.Samples[0]
	s.Max = s.Samples[0]

	for _, sample := range s.Samples {
		if sample < s.Min {
			s.Min = sample
		}
		if sample > s.Max {
			s.Max = sample
		}
		total += sample
	}
	s.Avg = total / time.Duration(len(s.Samples))
}

func (r *Report) Generate(w io.Writer) error {
	const reportTemplate = `
# Scene Stress Report

## Configuration
- **Run Duration:** {{.Duration}}
- **Initial Entities:** {{.Config.Entities}}
- **Churn Per Tick:** {{.Config.ChurnPerTick}}
- **Snapshot Cadence:** every {{.Config.SnapshotEvery}} frames

## Simulation
- **Total Updates:** {{.TotalUpdates}}
- **Total Time:** {{.TotalTime}}
- **Final Entities:** {{.FinalEntities}}
- **Update Time:** avg {{.UpdateTime.Avg}} / min {{.UpdateTime.Min}} / max {{.UpdateTime.Max}}

## Snapshots
- **Full Captures:** {{.FullCaptures}}
- **Incremental Captures:** {{.IncrementalCaptures}}
- **Capture Time:** avg {{.CaptureTime.Avg}} / min {{.CaptureTime.Min}} / max {{.CaptureTime.Max}}
- **Restores:** {{.Restores}} ({{.EntitiesRestored}} entities)
- **Skipped Components:** {{.SkippedComponents}}
- **Conservative Changes:** {{.ConservativeChanges}}

## Pools
{{range $name, $stats := .PoolStats}}- **{{$name}}:** size {{$stats.Size}}/{{$stats.MaxSize}}, obtained {{$stats.TotalObtained}}, created {{$stats.TotalCreated}}, hit rate {{printf "%.2f" $stats.HitRate}}
{{end}}
## Storage
- **Component Types In Use:** {{.StorageStats.TypeCount}}
- **Total Components:** {{.StorageStats.ComponentCount}}
- **Estimated Bytes:** {{.StorageStats.EstimatedBytes}}

## Systems
{{range .SceneStats.Systems}}- **{{.Name}}:** {{.ExecutionCount}} runs, avg {{.AvgDuration}}, max {{.MaxDuration}}
{{end}}
## Memory (Raw Bytes)
- Heap Alloc:  {{.MemStatsStart.HeapAlloc}} (start) -> {{.MemStatsEnd.HeapAlloc}} (end) -> delta: {{bsub .MemStatsEnd.HeapAlloc .MemStatsStart.HeapAlloc}}
- Total Alloc: {{.MemStatsStart.TotalAlloc}} (start) -> {{.MemStatsEnd.TotalAlloc}} (end) -> delta: {{bsub .MemStatsEnd.TotalAlloc .MemStatsStart.TotalAlloc}}
- Num GC:      {{.MemStatsStart.NumGC}} (start) -> {{.MemStatsEnd.NumGC}} (end) -> delta: {{usub .MemStatsEnd.NumGC .MemStatsStart.NumGC}}
`

	fm := template.FuncMap{
		"bsub": func(a, b uint64) int64 {
			return int64(a) - int64(b)
		},
		"usub": func(a, b uint32) uint32 {
			return a - b
		},
	}

	tmpl, err := template.New("report").Funcs(fm).Parse(reportTemplate)
	if err != nil {
		return err
	}

	return tmpl.Execute(w, r)
}
