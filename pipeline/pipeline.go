// Package pipeline orchestrates the CORE parsing packages — mpegts and
// scte35 — into a runnable ingest loop: read bytes from a source,
// resynchronize and demultiplex packets, reassemble PSI/SI sections and
// PES packets, extract audio frames, decode SCTE-35 splice information,
// and hand each result to caller-supplied sinks.
//
// The CORE packages stay single-threaded per call chain, exactly as
// documented on mpegts.Parser and mpegts.SectionAssembler: Ingest
// synchronously drives every assembler and every registered PES/audio
// callback on the same goroutine. Pipeline adds exactly one boundary
// beyond that: completed PES packets, audio frames, and decoded splice
// sections are handed to independent goroutines over buffered channels,
// so a slow sink (writing to disk, calling out to a database) never
// backs up the reader loop. A full channel drops the newest item rather
// than blocking; Stats records how many.
package pipeline

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/zsiec/tsprobe/mpegts"
	"github.com/zsiec/tsprobe/scte35"
)

const (
	// defaultChunkSize is a round number of 188-byte packets comfortably
	// above Parser's four-packet minimum, keeping syscall count low for
	// file and socket sources alike.
	defaultChunkSize = 4096 * 188

	pidPAT = 0x0000

	// channelDepth bounds how far a slow PES/audio/splice sink can lag
	// behind the reader before its channel starts dropping.
	channelDepth = 256
)

// Option configures a Pipeline at construction time.
type Option func(*Pipeline)

// WithLogger sets the logger used for pipeline-level events (bindings
// discovered, sinks backpressured, read errors). The CORE mpegts and
// scte35 packages never log; this is strictly an orchestration-layer
// concern.
func WithLogger(log *slog.Logger) Option {
	return func(p *Pipeline) { p.log = log }
}

// WithChunkSize overrides the number of bytes read from the source per
// Parser.Ingest call.
func WithChunkSize(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.chunkSize = n
		}
	}
}

// WithParserOptions forwards options to the underlying mpegts.Parser,
// e.g. mpegts.WithPacketSize(204) for FEC-padded sources.
func WithParserOptions(opts ...mpegts.ParserOption) Option {
	return func(p *Pipeline) { p.parserOpts = append(p.parserOpts, opts...) }
}

// OnPES registers sink to receive every reassembled PES packet on any
// elementary stream PID the pipeline has bound, video and audio alike.
// sink runs on its own goroutine, independent of the reader.
func OnPES(sink func(*mpegts.PESData)) Option {
	return func(p *Pipeline) { p.onPES = sink }
}

// OnAudioFrame registers sink to receive every framed MPEG audio frame
// extracted from PES packets on stream_type 0x03/0x04 elementary
// streams. sink runs on its own goroutine, independent of the reader.
func OnAudioFrame(sink func(mpegts.AudioFrame)) Option {
	return func(p *Pipeline) { p.onAudio = sink }
}

// OnSpliceInfo registers sink to receive every decoded SCTE-35
// splice_info_section found on a stream_type 0x86 elementary stream.
// sink runs on its own goroutine, independent of the reader.
func OnSpliceInfo(sink func(*scte35.SpliceInfoSection)) Option {
	return func(p *Pipeline) { p.onSplice = sink }
}

// Stats holds point-in-time counters for a running or finished Pipeline.
// Every field is safe to read concurrently with Run via Pipeline.Stats.
type Stats struct {
	BytesRead       int64
	SectionsSeen    int64
	PESDelivered    int64
	PESDropped      int64
	AudioDelivered  int64
	AudioDropped    int64
	SpliceDelivered int64
	SpliceDropped   int64
}

// Pipeline drives a single mpegts.Parser fed from an io.Reader, wiring a
// SectionAssembler and PESAssembler together with an AudioFrameExtractor
// and the scte35 adapter, discovering elementary stream bindings from
// PAT/PMT as they arrive.
//
// A Pipeline is single-use: call Run once. It is not safe for concurrent
// use beyond the goroutines Run itself starts.
type Pipeline struct {
	log       *slog.Logger
	r         io.Reader
	chunkSize int

	parserOpts []mpegts.ParserOption
	parser     *mpegts.Parser
	sections   *mpegts.SectionAssembler
	pes        *mpegts.PESAssembler
	audio      *mpegts.AudioFrameExtractor
	programs   *mpegts.ProgramMap

	spliceDecode mpegts.InstallCallback

	mu       sync.Mutex
	boundPES map[uint16]struct{}
	boundSI  map[uint16]struct{}

	onPES    func(*mpegts.PESData)
	onAudio  func(mpegts.AudioFrame)
	onSplice func(*scte35.SpliceInfoSection)

	pesCh    chan *mpegts.PESData
	audioCh  chan mpegts.AudioFrame
	spliceCh chan *scte35.SpliceInfoSection

	bytesRead       atomic.Int64
	sectionsSeen    atomic.Int64
	pesDelivered    atomic.Int64
	pesDropped      atomic.Int64
	audioDelivered  atomic.Int64
	audioDropped    atomic.Int64
	spliceDelivered atomic.Int64
	spliceDropped   atomic.Int64
}

// New returns a Pipeline reading TS bytes from r, configured by opts.
func New(r io.Reader, opts ...Option) *Pipeline {
	p := &Pipeline{
		log:       slog.With("component", "pipeline"),
		r:         r,
		chunkSize: defaultChunkSize,
		sections:  mpegts.NewSectionAssembler(),
		pes:       mpegts.NewPESAssembler(),
		audio:     mpegts.NewAudioFrameExtractor(),
		programs:  mpegts.NewProgramMap(),
		boundPES:  make(map[uint16]struct{}),
		boundSI:   make(map[uint16]struct{}),
		pesCh:     make(chan *mpegts.PESData, channelDepth),
		audioCh:   make(chan mpegts.AudioFrame, channelDepth),
		spliceCh:  make(chan *scte35.SpliceInfoSection, channelDepth),
	}
	for _, opt := range opts {
		opt(p)
	}

	p.parser = mpegts.NewParser(p.parserOpts...)
	p.audio.AddFrameCallback(func(f mpegts.AudioFrame) { p.enqueueAudio(f) })
	p.spliceDecode = scte35.InstallCallback(func(sis *scte35.SpliceInfoSection) { p.enqueueSplice(sis) })
	p.sections.SetInstallCallback(p.onSectionInstalled)

	if err := p.parser.AddBinding([]uint16{pidPAT}, p.sections.Consume); err != nil {
		panic(fmt.Sprintf("pipeline: binding PAT PID: %v", err))
	}

	return p
}

// Sections returns the section store the pipeline installs PAT, PMT,
// SI, and SCTE-35 sections into, for callers that want to poll it
// directly instead of registering a sink.
func (p *Pipeline) Sections() *mpegts.SectionStore { return p.sections.Store() }

// Programs returns the ProgramMap the pipeline keeps updated from PAT.
func (p *Pipeline) Programs() *mpegts.ProgramMap { return p.programs }

// Stats returns a snapshot of the pipeline's running counters.
func (p *Pipeline) Stats() Stats {
	return Stats{
		BytesRead:       p.bytesRead.Load(),
		SectionsSeen:    p.sectionsSeen.Load(),
		PESDelivered:    p.pesDelivered.Load(),
		PESDropped:      p.pesDropped.Load(),
		AudioDelivered:  p.audioDelivered.Load(),
		AudioDropped:    p.audioDropped.Load(),
		SpliceDelivered: p.spliceDelivered.Load(),
		SpliceDropped:   p.spliceDropped.Load(),
	}
}

// Run reads from the source until it returns io.EOF, ctx is cancelled,
// or a read error occurs. It starts the reader goroutine plus one drain
// goroutine per registered sink (OnPES, OnAudioFrame, OnSpliceInfo)
// under a shared errgroup.Group, and returns once all of them exit.
// Run returns nil on a clean EOF.
func (p *Pipeline) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(p.pesCh)
		defer close(p.audioCh)
		defer close(p.spliceCh)
		return p.ingestLoop(ctx)
	})

	if p.onPES != nil {
		g.Go(func() error { return drain(ctx, p.pesCh, p.onPES) })
	}
	if p.onAudio != nil {
		g.Go(func() error { return drain(ctx, p.audioCh, p.onAudio) })
	}
	if p.onSplice != nil {
		g.Go(func() error { return drain(ctx, p.spliceCh, p.onSplice) })
	}

	return g.Wait()
}

// drain forwards every value from ch to sink until ch closes or ctx is
// cancelled.
func drain[T any](ctx context.Context, ch <-chan T, sink func(T)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case v, ok := <-ch:
			if !ok {
				return nil
			}
			sink(v)
		}
	}
}

func (p *Pipeline) ingestLoop(ctx context.Context) error {
	br := bufio.NewReaderSize(p.r, p.chunkSize)
	buf := make([]byte, p.chunkSize)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, err := io.ReadFull(br, buf)
		if n > 0 {
			chunk := padToMinimum(buf[:n], p.parser.MinIngest())
			if ingestErr := p.parser.Ingest(chunk); ingestErr != nil {
				p.log.Warn("dropping short trailing chunk", "bytes", n, "error", ingestErr)
			} else {
				p.bytesRead.Add(int64(n))
			}
		}

		switch {
		case err == nil:
			continue
		case err == io.EOF, err == io.ErrUnexpectedEOF:
			p.flushOpenPES()
			return nil
		default:
			return fmt.Errorf("pipeline: reading source: %w", err)
		}
	}
}

// flushOpenPES emits every PES buffer still awaiting its next
// payload_unit_start_indicator, since end of stream is the only signal
// that one final PES packet has arrived complete.
func (p *Pipeline) flushOpenPES() {
	p.mu.Lock()
	pids := make([]uint16, 0, len(p.boundPES))
	for pid := range p.boundPES {
		pids = append(pids, pid)
	}
	p.mu.Unlock()
	for _, pid := range pids {
		p.pes.Flush(pid)
	}
}

// padToMinimum pads a short final read up to the parser's minimum ingest
// size, with zero bytes that will never match the sync byte and so are
// silently discarded as unresynced garbage.
func padToMinimum(chunk []byte, min int) []byte {
	if len(chunk) >= min {
		return chunk
	}
	padded := make([]byte, min)
	copy(padded, chunk)
	return padded
}

func (p *Pipeline) onSectionInstalled(section mpegts.StoredSection) {
	p.sectionsSeen.Add(1)

	switch section.TableID() {
	case mpegts.TableIDPAT:
		pat, err := mpegts.ParsePAT(section)
		if err != nil {
			p.log.Warn("dropping malformed PAT", "error", err)
			return
		}
		p.programs.Update(pat)
		for _, pid := range p.programs.PMTPIDs() {
			p.bindSection(pid)
		}
	case mpegts.TableIDPMT:
		pmt, err := mpegts.ParsePMT(section)
		if err != nil {
			p.log.Warn("dropping malformed PMT", "error", err)
			return
		}
		p.bindElementaryStreams(pmt)
	}

	p.spliceDecode(section)
}

// bindSection registers pid to feed the shared SectionAssembler, for
// PMT and SCTE-35 PIDs alike: both carry table-structured sections.
func (p *Pipeline) bindSection(pid uint16) {
	p.mu.Lock()
	_, already := p.boundSI[pid]
	p.boundSI[pid] = struct{}{}
	p.mu.Unlock()
	if already {
		return
	}
	if err := p.parser.AddBinding([]uint16{pid}, p.sections.Consume); err != nil {
		p.log.Warn("failed to bind section PID", "pid", pid, "error", err)
	}
}

func (p *Pipeline) bindElementaryStreams(pmt *mpegts.PMTData) {
	for _, es := range pmt.ElementaryStreams {
		pid := es.ElementaryPID

		p.mu.Lock()
		_, already := p.boundPES[pid]
		p.boundPES[pid] = struct{}{}
		p.mu.Unlock()
		if already {
			continue
		}

		if es.StreamType == mpegts.StreamTypeSCTE35 {
			p.bindSection(pid)
			continue
		}

		isAudio := mpegts.IsMPEGAudio(es.StreamType)
		if err := p.parser.AddBinding([]uint16{pid}, p.pes.Consume); err != nil {
			p.log.Warn("failed to bind elementary stream PID", "pid", pid, "error", err)
			continue
		}
		p.pes.AddPESCallback(pid, func(pes *mpegts.PESData) {
			if isAudio {
				p.audio.Consume(pes)
			}
			p.enqueuePES(pes)
		})
	}
}

func (p *Pipeline) enqueuePES(pes *mpegts.PESData) {
	if p.onPES == nil {
		return
	}
	select {
	case p.pesCh <- pes:
		p.pesDelivered.Add(1)
	default:
		p.pesDropped.Add(1)
		p.log.Warn("PES sink too slow, dropping packet")
	}
}

func (p *Pipeline) enqueueAudio(frame mpegts.AudioFrame) {
	if p.onAudio == nil {
		return
	}
	select {
	case p.audioCh <- frame:
		p.audioDelivered.Add(1)
	default:
		p.audioDropped.Add(1)
		p.log.Warn("audio frame sink too slow, dropping frame")
	}
}

func (p *Pipeline) enqueueSplice(sis *scte35.SpliceInfoSection) {
	if p.onSplice == nil {
		return
	}
	select {
	case p.spliceCh <- sis:
		p.spliceDelivered.Add(1)
	default:
		p.spliceDropped.Add(1)
		p.log.Warn("splice info sink too slow, dropping section")
	}
}
