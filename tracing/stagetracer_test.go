package tracing

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/Hyphaeic/radixrunner-wasm/handshake"
	"github.com/Hyphaeic/radixrunner-wasm/hooking"
)

func transit(t *StageTracer, from, to handshake.State, status string) {
	t.Func(hooking.HookCtx{
		Pos:  handshake.HookPosStateChange,
		Item: handshake.Transition{From: from, To: to, Status: status},
	})
}

var _ = Describe("StageTracer", func() {
	var (
		mockCtrl *gomock.Controller
		writer   *MockSpanWriter
		tracer   *StageTracer
		now      time.Time
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		writer = NewMockSpanWriter(mockCtrl)
		tracer = NewStageTracer("s1", writer)

		now = time.Unix(100, 0)
		tracer.now = func() time.Time { return now }
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should record one span per non-terminal state", func() {
		var written []Span
		writer.EXPECT().Write(gomock.Any()).
			Do(func(s Span) { written = append(written, s) }).
			Times(3)
		writer.EXPECT().Flush()

		transit(tracer, handshake.Idle, handshake.AwaitingBytes, "loading")
		now = now.Add(10 * time.Millisecond)
		transit(tracer, handshake.AwaitingBytes, handshake.WorkerSpawned, "spawning")
		now = now.Add(5 * time.Millisecond)
		transit(tracer, handshake.WorkerSpawned, handshake.AwaitingReady, "waiting")
		now = now.Add(100 * time.Millisecond)
		transit(tracer, handshake.AwaitingReady, handshake.Verified, "ok")

		spans := tracer.Spans()
		Expect(spans).To(HaveLen(3))
		Expect(written).To(Equal(spans))

		Expect(spans[0].State).To(Equal(handshake.AwaitingBytes))
		Expect(spans[0].Status).To(Equal("loading"))
		Expect(spans[0].Session).To(Equal("s1"))
		Expect(spans[0].Duration()).To(Equal(10 * time.Millisecond))

		Expect(tracer.TotalTime(handshake.AwaitingReady)).
			To(Equal(100 * time.Millisecond))
		Expect(tracer.TotalTime(handshake.Verified)).To(BeZero())
		Expect(tracer.Elapsed()).To(Equal(115 * time.Millisecond))
	})

	It("should ignore other hook positions", func() {
		tracer.Func(hooking.HookCtx{
			Pos:  handshake.HookPosVerifyCheck,
			Item: handshake.VerifyCheck{Attempt: 1},
		})

		Expect(tracer.Spans()).To(BeEmpty())
		Expect(tracer.Elapsed()).To(BeZero())
	})
})

var _ = Describe("CSVTraceWriter", func() {
	It("should write spans with a header", func() {
		path := filepath.Join(GinkgoT().TempDir(), "trace")
		w := NewCSVTraceWriter(path)
		w.Init()

		start := time.Unix(100, 0).UTC()
		w.Write(Span{
			ID:      "a",
			Session: "s1",
			State:   handshake.AwaitingReady,
			Status:  "Waiting, still",
			Start:   start,
			End:     start.Add(time.Millisecond),
		})

		Expect(w.Close()).To(Succeed())
		Expect(w.Close()).To(Succeed())

		data, err := os.ReadFile(w.Path())
		Expect(err).NotTo(HaveOccurred())

		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		Expect(lines).To(HaveLen(2))
		Expect(lines[0]).To(HavePrefix("ID,Session,State"))
		Expect(lines[1]).To(ContainSubstring(`"Waiting, still"`))
		Expect(lines[1]).To(HaveSuffix(",1000000"))
	})

	It("should refuse to overwrite a file", func() {
		path := filepath.Join(GinkgoT().TempDir(), "trace")
		Expect(os.WriteFile(path+".csv", nil, 0o644)).To(Succeed())

		Expect(NewCSVTraceWriter(path).Init).To(Panic())
	})
})
