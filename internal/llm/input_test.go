package llm_test

import (
	"context"
	"errors"

	"basegraph.app/chat/internal/llm"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type mockUploader struct {
	uploadFn func(ctx context.Context, name, mimeType string, data []byte) (string, error)
	calls    int
}

func (m *mockUploader) UploadFile(ctx context.Context, name, mimeType string, data []byte) (string, error) {
	m.calls++
	if m.uploadFn != nil {
		return m.uploadFn(ctx, name, mimeType, data)
	}
	return "file-1", nil
}

var _ = Describe("BuildInput", func() {
	var (
		ctx      context.Context
		uploader *mockUploader
	)

	BeforeEach(func() {
		ctx = context.Background()
		uploader = &mockUploader{}
	})

	It("returns plain text without an attachment", func() {
		in, err := llm.BuildInput(ctx, uploader, "Ciao", nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(in).To(Equal(llm.Input{Text: "Ciao"}))
		Expect(in.HasAttachment()).To(BeFalse())
		Expect(uploader.calls).To(BeZero())
	})

	It("inlines images as base64 data URLs", func() {
		att := &llm.Attachment{Name: "cat.png", MimeType: "image/png", Data: []byte("png")}

		in, err := llm.BuildInput(ctx, uploader, "cosa vedi?", att)
		Expect(err).NotTo(HaveOccurred())
		Expect(in.Text).To(Equal("cosa vedi?"))
		Expect(in.ImageURL).To(Equal("data:image/png;base64,cG5n"))
		Expect(in.FileID).To(BeEmpty())
		Expect(uploader.calls).To(BeZero())
	})

	It("uploads PDFs and references the file id", func() {
		uploader.uploadFn = func(_ context.Context, name, mimeType string, data []byte) (string, error) {
			Expect(name).To(Equal("doc.pdf"))
			Expect(mimeType).To(Equal(llm.MimePDF))
			Expect(data).To(Equal([]byte("%PDF")))
			return "file-abc", nil
		}
		att := &llm.Attachment{Name: "doc.pdf", MimeType: llm.MimePDF, Data: []byte("%PDF")}

		in, err := llm.BuildInput(ctx, uploader, "riassumi", att)
		Expect(err).NotTo(HaveOccurred())
		Expect(in.FileID).To(Equal("file-abc"))
		Expect(in.ImageURL).To(BeEmpty())
		Expect(in.HasAttachment()).To(BeTrue())
	})

	It("fails with an UploadError when the PDF upload fails", func() {
		uploader.uploadFn = func(context.Context, string, string, []byte) (string, error) {
			return "", errors.New("quota exceeded")
		}
		att := &llm.Attachment{Name: "doc.pdf", MimeType: llm.MimePDF, Data: []byte("%PDF")}

		_, err := llm.BuildInput(ctx, uploader, "riassumi", att)
		Expect(err).To(MatchError(llm.ErrUpload))

		var uploadErr *llm.UploadError
		Expect(errors.As(err, &uploadErr)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("PDF"))
		Expect(err.Error()).To(ContainSubstring("quota exceeded"))
	})

	It("rejects other MIME types", func() {
		att := &llm.Attachment{Name: "a.mp3", MimeType: "audio/mpeg", Data: []byte("x")}

		_, err := llm.BuildInput(ctx, uploader, "ascolta", att)
		Expect(err).To(MatchError(llm.ErrUnsupportedAttachment))
		Expect(uploader.calls).To(BeZero())
	})
})

var _ = DescribeTable("SupportedMimeType",
	func(mimeType string, expected bool) {
		Expect(llm.SupportedMimeType(mimeType)).To(Equal(expected))
	},
	Entry("png", "image/png", true),
	Entry("jpeg", "image/jpeg", true),
	Entry("pdf", "application/pdf", true),
	Entry("audio", "audio/webm", false),
	Entry("text", "text/plain", false),
	Entry("empty", "", false),
)
