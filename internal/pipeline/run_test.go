package pipeline_test

import (
	"context"
	"errors"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/punchcard/internal/animate"
	"github.com/san-kum/punchcard/internal/pipeline"
	"github.com/san-kum/punchcard/internal/render"
)

type sink struct {
	name  string
	delay time.Duration
	fail  func() error

	mu     sync.Mutex
	frames []animate.Frame
}

func (s *sink) Name() string { return s.name }

func (s *sink) Render(ctx context.Context, f animate.Frame) error {
	time.Sleep(s.delay)
	if s.fail != nil {
		if err := s.fail(); err != nil {
			return err
		}
	}
	s.mu.Lock()
	s.frames = append(s.frames, f)
	s.mu.Unlock()
	return nil
}

func (s *sink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

func (s *sink) last() animate.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames[len(s.frames)-1]
}

type history struct {
	mu    sync.Mutex
	texts []string
}

func (h *history) Record(ctx context.Context, e pipeline.Entry) error {
	h.mu.Lock()
	h.texts = append(h.texts, e.Text)
	h.mu.Unlock()
	return nil
}

func (h *history) all() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.texts...)
}

var _ = Describe("Pipeline.Run", func() {
	var (
		ctx      context.Context
		cancel   context.CancelFunc
		gui      *sink
		hw       *sink
		hist     *history
		failures chan pipeline.Event
		p        *pipeline.Pipeline
		r        *render.Renderer
		runDone  chan struct{}
	)

	start := func(opts pipeline.Options) {
		var pl *pipeline.Pipeline
		r = render.New(gui, hw, render.Options{OnFailure: func(e *render.SinkWriteError) { pl.SinkFailed(e) }})
		pl = pipeline.New(animate.NewEngine(animate.DefaultTiming()), r, opts,
			pipeline.WithHistory(hist),
			pipeline.WithObserver(pipeline.ObserverFunc(func(e pipeline.Event) {
				if e.Type == pipeline.EventSinkFailure {
					select {
					case failures <- e:
					default:
					}
				}
			})))
		p = pl
		r.Start(ctx)
		runDone = make(chan struct{})
		go func() {
			defer close(runDone)
			_ = p.Run(ctx)
		}()
	}

	BeforeEach(func() {
		ctx, cancel = context.WithCancel(context.Background())
		gui = &sink{name: "gui"}
		hw = &sink{name: "hardware"}
		hist = &history{}
		failures = make(chan pipeline.Event, 16)
	})

	AfterEach(func() {
		cancel()
		Eventually(runDone).Should(BeClosed())
		r.Close()
	})

	It("animates a message to completion on both sinks", func() {
		opts := pipeline.DefaultOptions()
		opts.FrameInterval = 5 * time.Millisecond
		opts.Animation = animate.Params{Kind: animate.Typewriter, Duration: 100 * time.Millisecond}
		start(opts)

		_, err := p.Submit(ctx, "HELLO")
		Expect(err).NotTo(HaveOccurred())

		Eventually(hist.all, time.Second).Should(Equal([]string{"HELLO"}))
		Expect(gui.last().Final).To(BeTrue())
		Eventually(func() bool { return hw.count() > 0 && hw.last().Final }, time.Second).Should(BeTrue())
		Expect(hw.count()).To(BeNumerically("<=", gui.count()))
		Expect(p.Canonical().Decode()).To(Equal("HELLO"))
	})

	It("keeps the GUI smooth while the hardware lags", func() {
		hw.delay = 40 * time.Millisecond
		opts := pipeline.DefaultOptions()
		opts.FrameInterval = 5 * time.Millisecond
		opts.Animation = animate.Params{Kind: animate.Fade, Duration: 200 * time.Millisecond}
		start(opts)

		_, err := p.Submit(ctx, "LAG")
		Expect(err).NotTo(HaveOccurred())

		Eventually(hist.all, time.Second).Should(ContainElement("LAG"))
		Eventually(func() bool { return hw.count() > 0 && hw.last().Final }, time.Second).Should(BeTrue())
		Expect(gui.count()).To(BeNumerically(">", hw.count()))

		var hwStats render.Stats
		for _, s := range p.Status().Sinks {
			if s.Sink == "hardware" {
				hwStats = s
			}
		}
		Expect(hwStats.Coalesced).To(BeNumerically(">", 0))
	})

	It("survives hardware failures", func() {
		var mu sync.Mutex
		broken := true
		hw.fail = func() error {
			mu.Lock()
			defer mu.Unlock()
			if broken {
				return errors.New("gpio write failed")
			}
			return nil
		}
		opts := pipeline.DefaultOptions()
		opts.FrameInterval = 5 * time.Millisecond
		opts.Animation = animate.Params{Kind: animate.Instant}
		start(opts)

		_, err := p.Submit(ctx, "FIRST")
		Expect(err).NotTo(HaveOccurred())

		var ev pipeline.Event
		Eventually(failures, time.Second).Should(Receive(&ev))
		Expect(errors.Is(ev.Err, render.ErrSinkWrite)).To(BeTrue())
		Eventually(hist.all, time.Second).Should(Equal([]string{"FIRST"}))

		mu.Lock()
		broken = false
		mu.Unlock()

		_, err = p.Submit(ctx, "SECOND")
		Expect(err).NotTo(HaveOccurred())
		Eventually(hist.all, time.Second).Should(Equal([]string{"FIRST", "SECOND"}))
		Eventually(func() string {
			if hw.count() == 0 {
				return ""
			}
			return hw.last().Grid().Decode()
		}, time.Second).Should(Equal("SECOND"))
		Expect(gui.last().Grid().Decode()).To(Equal("SECOND"))
	})

	It("records only the last of rapid superseding submissions", func() {
		opts := pipeline.DefaultOptions()
		opts.FrameInterval = 5 * time.Millisecond
		opts.Animation = animate.Params{Kind: animate.Slide, Duration: 300 * time.Millisecond}
		start(opts)

		for _, msg := range []string{"ONE", "TWO", "THREE"} {
			_, err := p.Submit(ctx, msg)
			Expect(err).NotTo(HaveOccurred())
			time.Sleep(20 * time.Millisecond)
		}

		Eventually(hist.all, 2*time.Second).Should(Equal([]string{"THREE"}))
		Consistently(hist.all, 100*time.Millisecond).Should(HaveLen(1))
	})

	It("rejects submissions after shutdown", func() {
		start(pipeline.DefaultOptions())
		cancel()
		Eventually(runDone).Should(BeClosed())

		_, err := p.Submit(context.Background(), "LATE")
		Expect(err).To(MatchError(pipeline.ErrClosed))
	})
})
