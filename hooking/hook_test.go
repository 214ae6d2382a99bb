package hooking

import (
	"bytes"
	"log"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type namedDomain struct {
	*HookableBase
}

func (namedDomain) Name() string { return "Domain" }

var _ = Describe("HookableBase", func() {
	var (
		h     *HookableBase
		calls []HookCtx
		hook  HookFunc
	)

	BeforeEach(func() {
		h = NewHookableBase()
		calls = nil
		hook = func(ctx HookCtx) { calls = append(calls, ctx) }
	})

	It("should invoke registered hooks", func() {
		pos := &HookPos{Name: "Pos"}
		h.AcceptHook(&hook)

		h.InvokeHook(HookCtx{Domain: h, Pos: pos, Item: 1})

		Expect(h.NumHooks()).To(Equal(1))
		Expect(calls).To(HaveLen(1))
		Expect(calls[0].Item).To(Equal(1))
		Expect(calls[0].Pos).To(BeIdenticalTo(pos))
	})

	It("should panic on duplicated hook", func() {
		h.AcceptHook(&hook)

		Expect(func() { h.AcceptHook(&hook) }).To(Panic())
	})
})

var _ = Describe("Logger", func() {
	var (
		buf    *bytes.Buffer
		domain namedDomain
		posA   *HookPos
		posB   *HookPos
	)

	BeforeEach(func() {
		buf = new(bytes.Buffer)
		domain = namedDomain{HookableBase: NewHookableBase()}
		posA = &HookPos{Name: "A"}
		posB = &HookPos{Name: "B"}
	})

	It("should print domain name, position and item", func() {
		l := NewLogger(log.New(buf, "", 0))

		l.Func(HookCtx{Domain: domain, Pos: posA, Item: "ready", Detail: 3})

		Expect(buf.String()).To(Equal("[Domain] A: ready (3)\n"))
	})

	It("should skip positions that are not selected", func() {
		l := NewLogger(log.New(buf, "", 0), posB)

		l.Func(HookCtx{Domain: domain, Pos: posA, Item: "x"})
		Expect(buf.Len()).To(BeZero())

		l.Func(HookCtx{Domain: domain, Pos: posB, Item: "y"})
		Expect(buf.String()).To(ContainSubstring("B: y"))
	})
})
