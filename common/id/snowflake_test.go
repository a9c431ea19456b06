package id_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/chat/common/id"
)

var _ = Describe("NewString", func() {
	It("works without Init", func() {
		Expect(id.NewString()).NotTo(BeEmpty())
	})

	It("never repeats", func() {
		seen := make(map[string]struct{}, 1000)
		for range 1000 {
			s := id.NewString()
			Expect(seen).NotTo(HaveKey(s))
			seen[s] = struct{}{}
		}
	})

	It("returns base36 text", func() {
		Expect(id.NewString()).To(MatchRegexp(`^[0-9a-z]+$`))
	})
})
