package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/zsiec/tsprobe/mpegts"
	"github.com/zsiec/tsprobe/pipeline"
	"github.com/zsiec/tsprobe/scte35"
)

var version = "dev"

func main() {
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: tsinspect <file.ts | ->")
		os.Exit(1)
	}

	in, err := openInput(os.Args[1])
	if err != nil {
		slog.Error("failed to open input", "error", err)
		os.Exit(1)
	}
	defer in.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		cancel()
	}()

	packetSize := envOrInt("TS_PACKET_SIZE", 188)

	a := &app{}

	p := pipeline.New(in,
		pipeline.WithLogger(slog.With("component", "pipeline")),
		pipeline.WithParserOptions(mpegts.WithPacketSize(packetSize)),
		pipeline.OnPES(a.onPES),
		pipeline.OnAudioFrame(a.onAudioFrame),
		pipeline.OnSpliceInfo(a.onSpliceInfo),
	)

	slog.Info("tsinspect starting",
		"version", version,
		"input", os.Args[1],
		"packet_size", packetSize,
	)

	describeCtx, stopDescribe := context.WithCancel(ctx)
	describeDone := make(chan struct{})
	go func() {
		defer close(describeDone)
		describeLoop(describeCtx, p)
	}()

	start := time.Now()
	runErr := p.Run(ctx)
	stopDescribe()
	<-describeDone

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		slog.Error("pipeline error", "error", runErr)
		os.Exit(1)
	}

	a.reportPrograms(p)

	stats := p.Stats()
	slog.Info("inspection complete",
		"duration", time.Since(start),
		"bytes_read", stats.BytesRead,
		"sections_seen", stats.SectionsSeen,
		"pes_delivered", stats.PESDelivered,
		"pes_dropped", stats.PESDropped,
		"audio_delivered", stats.AudioDelivered,
		"audio_dropped", stats.AudioDropped,
		"splice_delivered", stats.SpliceDelivered,
		"splice_dropped", stats.SpliceDropped,
	)
}

// app accumulates a running tally of what tsinspect has seen, logged per
// event (PES packets only for the first five and every thousandth) plus a
// final summary once the source drains.
type app struct {
	pesCount   int
	audioCount int
}

func (a *app) onPES(pes *mpegts.PESData) {
	a.pesCount++
	if a.pesCount <= 5 || a.pesCount%1000 == 0 {
		slog.Debug("PES packet", "stream_id", pes.Header.StreamID, "count", a.pesCount)
	}
}

func (a *app) onAudioFrame(f mpegts.AudioFrame) {
	a.audioCount++
	slog.Debug("audio frame", "pts", f.PTS, "bytes", len(f.Data), "count", a.audioCount)
}

func (a *app) onSpliceInfo(sis *scte35.SpliceInfoSection) {
	if sis.SpliceCommand == nil {
		slog.Info("SCTE-35 splice_info_section", "command", "none")
		return
	}
	slog.Info("SCTE-35 splice_info_section",
		"command_type", fmt.Sprintf("0x%02X", sis.SpliceCommand.Type()),
		"pts_adjustment", sis.PTSAdjustment,
		"descriptors", len(sis.SpliceDescriptors),
	)
	if insert, ok := sis.SpliceCommand.(*scte35.SpliceInsert); ok {
		slog.Info("splice_insert",
			"event_id", insert.SpliceEventID,
			"out_of_network", insert.OutOfNetworkIndicator,
		)
	}
}

// describeLoop polls the pipeline's section store and program map on its
// own goroutine while the reader goroutine keeps ingesting, logging a
// one-line debug-level snapshot every two seconds. This exercises the pipeline's
// documented reader/writer split: ingestion holds a section store writer
// guard only for the moment a section installs, so a concurrent describe
// poll never blocks it for long.
func describeLoop(ctx context.Context, p *pipeline.Pipeline) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := p.Stats()
			slog.Debug("describe snapshot",
				"programs", len(p.Programs().PMTPIDs()),
				"sections_stored", p.Sections().Len(),
				"bytes_read", stats.BytesRead,
			)
		}
	}
}

// reportPrograms logs the program_number and PMT PID of every program
// discovered from PAT/PMT during the run.
func (a *app) reportPrograms(p *pipeline.Pipeline) {
	pm := p.Programs()
	pids := pm.PMTPIDs()
	if len(pids) == 0 {
		slog.Warn("no programs discovered (no PAT/PMT seen)")
		return
	}
	for _, pid := range pids {
		num, _ := pm.ProgramNumber(pid)
		slog.Info("program discovered", "program_number", num, "pmt_pid", pid)
	}
}

func openInput(path string) (*os.File, error) {
	if path == "-" {
		return os.Stdin, nil
	}
	return os.Open(path)
}

func envOrInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
