package otel_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/chat/common/otel"
	"basegraph.app/chat/core/config"
)

var _ = Describe("Setup", func() {
	It("is a no-op without an endpoint", func() {
		t, err := otel.Setup(context.Background(), config.OTelConfig{ServiceName: "chat"})
		Expect(err).NotTo(HaveOccurred())
		Expect(t).To(BeNil())
	})
})

var _ = DescribeTable("ParseHeaders",
	func(in string, expected map[string]string) {
		Expect(otel.ParseHeaders(in)).To(Equal(expected))
	},
	Entry("empty", "", map[string]string{}),
	Entry("pairs", "api-key=abc, x-team = chat", map[string]string{"api-key": "abc", "x-team": "chat"}),
	Entry("encoded value", "Authorization=Basic%20dXNlcg%3D%3D", map[string]string{"Authorization": "Basic dXNlcg=="}),
	Entry("value with equals", "token=a=b", map[string]string{"token": "a=b"}),
	Entry("junk", "novalue,=x", map[string]string{}),
)
