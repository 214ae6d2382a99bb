package handshake_test

import (
	"context"
	"errors"
	"time"

	"github.com/Hyphaeic/radixrunner-wasm/handshake"
	"github.com/Hyphaeic/radixrunner-wasm/hooking"
	"github.com/Hyphaeic/radixrunner-wasm/region"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"
)

var _ = Describe("Controller", func() {
	var (
		mockCtrl    *gomock.Controller
		source      *MockPayloadSource
		spawner     *MockSpawner
		worker      *MockWorker
		messages    chan handshake.Message
		faults      chan error
		reg         *region.Region
		policy      handshake.VerifyPolicy
		transitions []handshake.Transition
		recordHook  hooking.HookFunc
		controller  *handshake.Controller
	)

	payload := []byte{0x00, 0x61, 0x73, 0x6d}

	build := func() *handshake.Controller {
		c := handshake.MakeBuilder().
			WithName("TestController").
			WithRegion(reg).
			WithPayloadSource(source).
			WithSpawner(spawner).
			WithVerifyPolicy(policy).
			Build()
		c.AcceptHook(&recordHook)

		return c
	}

	expectSpawn := func() {
		source.EXPECT().Fetch(gomock.Any()).Return(payload, nil)
		spawner.EXPECT().Spawn(gomock.Any()).Return(worker, nil)
	}

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		source = NewMockPayloadSource(mockCtrl)
		spawner = NewMockSpawner(mockCtrl)
		worker = NewMockWorker(mockCtrl)

		messages = make(chan handshake.Message, 8)
		faults = make(chan error, 1)

		worker.EXPECT().ID().Return("worker-1").AnyTimes()
		worker.EXPECT().Messages().Return(messages).AnyTimes()
		worker.EXPECT().Faults().Return(faults).AnyTimes()
		source.EXPECT().Describe().Return("test.wasm").AnyTimes()

		var err error
		reg, err = region.Allocate(region.PageSize)
		Expect(err).ToNot(HaveOccurred())

		policy = handshake.VerifyPolicy{
			Delay:    10 * time.Millisecond,
			Attempts: 1,
			Backoff:  2,
		}

		transitions = nil
		recordHook = func(ctx hooking.HookCtx) {
			if ctx.Pos == handshake.HookPosStateChange {
				transitions = append(transitions, ctx.Item.(handshake.Transition))
			}
		}

		controller = nil
	})

	AfterEach(func() {
		mockCtrl.Finish()
		Expect(reg.Release()).To(Succeed())
	})

	It("should reach Verified when the worker writes before ready", func() {
		expectSpawn()
		worker.EXPECT().PostMessage(gomock.Any()).
			DoAndReturn(func(msg handshake.Message) error {
				Expect(msg.Kind).To(Equal(handshake.KindInit))
				Expect(msg.Memory).To(BeIdenticalTo(reg))
				Expect(msg.Payload).To(Equal(payload))

				go func() {
					msg.Memory.StoreHead(1)
					messages <- handshake.Message{Kind: handshake.KindReady}
				}()

				return nil
			}).Times(1)

		controller = build()
		result, err := controller.Run(context.Background())

		Expect(err).ToNot(HaveOccurred())
		Expect(result.State).To(Equal(handshake.Verified))
		Expect(result.Head).To(Equal(uint64(1)))
		Expect(result.Checks).To(Equal(1))
		Expect(result.Worker).To(BeIdenticalTo(worker))
		Expect(controller.State()).To(Equal(handshake.Verified))
		Expect(controller.Status()).To(Equal(handshake.StatusVerified))

		var states []handshake.State
		for _, t := range transitions {
			states = append(states, t.To)
		}
		Expect(states).To(Equal([]handshake.State{
			handshake.AwaitingBytes,
			handshake.WorkerSpawned,
			handshake.AwaitingReady,
			handshake.Verified,
		}))
		Expect(transitions[0].From).To(Equal(handshake.Idle))
	})

	It("should fail with a sharing diagnosis when the head stays zero", func() {
		policy.Attempts = 3
		expectSpawn()
		worker.EXPECT().PostMessage(gomock.Any()).
			DoAndReturn(func(handshake.Message) error {
				messages <- handshake.Message{Kind: handshake.KindReady}
				return nil
			})

		controller = build()
		result, err := controller.Run(context.Background())

		var notShared *handshake.VerificationFailure
		Expect(errors.As(err, &notShared)).To(BeTrue())
		Expect(notShared.Checks).To(Equal(3))
		Expect(notShared.Waited).To(Equal(70 * time.Millisecond))

		var workerErr *handshake.WorkerError
		Expect(errors.As(err, &workerErr)).To(BeFalse())

		Expect(result.State).To(Equal(handshake.Failed))
		Expect(controller.Status()).To(Equal(handshake.StatusNotShared))
		Expect(controller.Err()).To(Equal(err))
	})

	It("should accept a first write that arrives during a later check", func() {
		policy.Attempts = 6
		expectSpawn()
		worker.EXPECT().PostMessage(gomock.Any()).
			DoAndReturn(func(msg handshake.Message) error {
				messages <- handshake.Message{Kind: handshake.KindReady}
				go func() {
					time.Sleep(25 * time.Millisecond)
					msg.Memory.StoreHead(7)
				}()

				return nil
			})

		controller = build()
		result, err := controller.Run(context.Background())

		Expect(err).ToNot(HaveOccurred())
		Expect(result.Head).To(Equal(uint64(7)))
		Expect(result.Checks).To(BeNumerically(">", 1))
	})

	It("should fail with a worker error on an error message", func() {
		expectSpawn()
		worker.EXPECT().PostMessage(gomock.Any()).
			DoAndReturn(func(handshake.Message) error {
				messages <- handshake.Message{
					Kind:   handshake.KindError,
					Error:  "invalid magic number",
					Stage:  "compile",
					Detail: "stack",
				}
				return nil
			})

		controller = build()
		result, err := controller.Run(context.Background())

		var workerErr *handshake.WorkerError
		Expect(errors.As(err, &workerErr)).To(BeTrue())
		Expect(workerErr.Stage).To(Equal("compile"))
		Expect(workerErr.Message).To(Equal("invalid magic number"))
		Expect(workerErr.Detail).To(Equal("stack"))
		Expect(workerErr.WorkerID).To(Equal("worker-1"))
		Expect(result.State).To(Equal(handshake.Failed))
		Expect(controller.Status()).To(Equal("ERROR: invalid magic number"))
	})

	It("should fail with a worker fault", func() {
		expectSpawn()
		worker.EXPECT().PostMessage(gomock.Any()).
			DoAndReturn(func(handshake.Message) error {
				faults <- errors.New("boom")
				return nil
			})

		controller = build()
		_, err := controller.Run(context.Background())

		var fault *handshake.WorkerFault
		Expect(errors.As(err, &fault)).To(BeTrue())
		Expect(fault.Err).To(MatchError("boom"))
		Expect(controller.Status()).To(Equal("ERROR: Tick worker failed"))
	})

	It("should treat a vanished worker as a fault", func() {
		expectSpawn()
		worker.EXPECT().PostMessage(gomock.Any()).
			DoAndReturn(func(handshake.Message) error {
				close(messages)
				return nil
			})

		controller = build()
		_, err := controller.Run(context.Background())

		var fault *handshake.WorkerFault
		Expect(errors.As(err, &fault)).To(BeTrue())
	})

	It("should keep the crash reason when the worker exits after a fault", func() {
		expectSpawn()
		worker.EXPECT().PostMessage(gomock.Any()).
			DoAndReturn(func(handshake.Message) error {
				faults <- errors.New("host panic: index out of range")
				close(messages)
				return nil
			})

		controller = build()
		_, err := controller.Run(context.Background())

		var fault *handshake.WorkerFault
		Expect(errors.As(err, &fault)).To(BeTrue())
		Expect(fault.Err).To(MatchError("host panic: index out of range"))
	})

	It("should fail when the worker errors during verification", func() {
		policy.Delay = 50 * time.Millisecond
		expectSpawn()
		worker.EXPECT().PostMessage(gomock.Any()).
			DoAndReturn(func(handshake.Message) error {
				messages <- handshake.Message{Kind: handshake.KindReady}
				messages <- handshake.Message{Kind: handshake.KindError, Error: "trap"}
				return nil
			})

		controller = build()
		_, err := controller.Run(context.Background())

		var workerErr *handshake.WorkerError
		Expect(errors.As(err, &workerErr)).To(BeTrue())
		Expect(workerErr.Message).To(Equal("trap"))
	})

	It("should ignore unknown messages", func() {
		expectSpawn()
		worker.EXPECT().PostMessage(gomock.Any()).
			DoAndReturn(func(msg handshake.Message) error {
				messages <- handshake.Message{Kind: "progress"}
				messages <- handshake.Message{Kind: handshake.KindInit}
				msg.Memory.StoreHead(3)
				messages <- handshake.Message{Kind: handshake.KindReady}
				return nil
			})

		controller = build()
		result, err := controller.Run(context.Background())

		Expect(err).ToNot(HaveOccurred())
		Expect(result.State).To(Equal(handshake.Verified))
	})

	It("should not spawn a worker when the payload cannot be fetched", func() {
		source.EXPECT().Fetch(gomock.Any()).Return(nil, errors.New("404 Not Found"))

		controller = build()
		result, err := controller.Run(context.Background())

		var fetchErr *handshake.PayloadFetchError
		Expect(errors.As(err, &fetchErr)).To(BeTrue())
		Expect(fetchErr.Source).To(Equal("test.wasm"))
		Expect(result.State).To(Equal(handshake.Failed))
		Expect(result.Worker).To(BeNil())
	})

	It("should fail when the worker cannot be spawned", func() {
		source.EXPECT().Fetch(gomock.Any()).Return(payload, nil)
		spawner.EXPECT().Spawn(gomock.Any()).Return(nil, errors.New("no threads"))

		controller = build()
		_, err := controller.Run(context.Background())

		var fault *handshake.WorkerFault
		Expect(errors.As(err, &fault)).To(BeTrue())
	})

	It("should fail when the init message cannot be posted", func() {
		expectSpawn()
		worker.EXPECT().PostMessage(gomock.Any()).Return(errors.New("inbox full"))

		controller = build()
		_, err := controller.Run(context.Background())

		var fault *handshake.WorkerFault
		Expect(errors.As(err, &fault)).To(BeTrue())
		Expect(fault.WorkerID).To(Equal("worker-1"))
	})

	It("should stop waiting when the context is cancelled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		expectSpawn()
		worker.EXPECT().PostMessage(gomock.Any()).
			DoAndReturn(func(handshake.Message) error {
				cancel()
				return nil
			})

		controller = build()
		_, err := controller.Run(ctx)

		Expect(err).To(MatchError(context.Canceled))
		Expect(controller.State()).To(Equal(handshake.Failed))
	})

	It("should refuse to run twice", func() {
		source.EXPECT().Fetch(gomock.Any()).Return(nil, errors.New("gone"))

		controller = build()
		_, _ = controller.Run(context.Background())

		Expect(func() { _, _ = controller.Run(context.Background()) }).To(Panic())
	})
})

var _ = Describe("VerifyPolicy", func() {
	It("should grow the delay and cap it", func() {
		p := handshake.VerifyPolicy{
			Delay:    100 * time.Millisecond,
			Attempts: 5,
			Backoff:  2,
			MaxDelay: 500 * time.Millisecond,
		}

		Expect(p.Delays()).To(Equal([]time.Duration{
			100 * time.Millisecond,
			200 * time.Millisecond,
			400 * time.Millisecond,
			500 * time.Millisecond,
			500 * time.Millisecond,
		}))
		Expect(p.Budget()).To(Equal(1700 * time.Millisecond))
	})

	It("should check at least once", func() {
		p := handshake.VerifyPolicy{Delay: time.Millisecond}

		Expect(p.Delays()).To(Equal([]time.Duration{time.Millisecond}))
	})

	It("should default to a bounded poll starting at 100ms", func() {
		p := handshake.DefaultVerifyPolicy()

		Expect(p.Delays()[0]).To(Equal(100 * time.Millisecond))
		Expect(p.Attempts).To(BeNumerically(">", 1))
	})
})

var _ = Describe("StatusFor", func() {
	It("should describe payload failures", func() {
		err := &handshake.PayloadFetchError{Source: "x.wasm", Err: errors.New("missing")}

		Expect(handshake.StatusFor(err)).To(HavePrefix("ERROR: "))
		Expect(handshake.StatusFor(err)).To(ContainSubstring("x.wasm"))
	})
})
