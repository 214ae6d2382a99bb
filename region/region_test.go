package region_test

import (
	"encoding/binary"
	"errors"

	"github.com/Hyphaeic/radixrunner-wasm/region"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Region", func() {
	var r *region.Region

	AfterEach(func() {
		if r != nil {
			Expect(r.Release()).To(Succeed())
			r = nil
		}
	})

	It("should allocate the reference 16 MiB region", func() {
		var err error
		r, err = region.Allocate(region.DefaultSize)

		Expect(err).ToNot(HaveOccurred())
		Expect(r.Size()).To(Equal(16 * 1024 * 1024))
		Expect(r.Pages()).To(Equal(256))
		Expect(r.Bytes()).To(HaveLen(region.DefaultSize))
	})

	It("should read a zero head right after allocation", func() {
		var err error
		r, err = region.Allocate(region.PageSize)

		Expect(err).ToNot(HaveOccurred())
		Expect(r.LoadHead()).To(BeZero())
	})

	It("should store the head little-endian at 0x100", func() {
		r, _ = region.Allocate(region.PageSize)

		r.StoreHead(0x0102030405060708)

		raw := r.Bytes()[region.HeadOffset : region.HeadOffset+region.HeadSize]
		Expect(binary.LittleEndian.Uint64(raw)).To(Equal(uint64(0x0102030405060708)))
		Expect(raw[0]).To(Equal(byte(0x08)))
	})

	It("should see writes made through the byte view", func() {
		r, _ = region.Allocate(region.PageSize)

		binary.LittleEndian.PutUint64(r.Bytes()[region.HeadOffset:], 42)

		Expect(r.LoadHead()).To(Equal(uint64(42)))
	})

	It("should add to the head", func() {
		r, _ = region.Allocate(region.PageSize)

		Expect(r.AddHead(3)).To(Equal(uint64(3)))
		Expect(r.AddHead(4)).To(Equal(uint64(7)))
		Expect(r.LoadHead()).To(Equal(uint64(7)))
	})

	DescribeTable("should reject invalid sizes",
		func(size int) {
			_, err := region.Allocate(size)

			var allocErr *region.AllocationError
			Expect(errors.As(err, &allocErr)).To(BeTrue())
			Expect(allocErr.Size).To(Equal(size))
		},
		Entry("zero", 0),
		Entry("negative", -region.PageSize),
		Entry("not page aligned", region.PageSize+1),
	)

	It("should tolerate releasing twice", func() {
		reg, err := region.Allocate(region.PageSize)
		Expect(err).ToNot(HaveOccurred())

		Expect(reg.Release()).To(Succeed())
		Expect(reg.Release()).To(Succeed())
	})
})
