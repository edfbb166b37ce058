package common_test

import (
	"approvalflow/common"
	"encoding/json"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("ScanJSONColumn", func() {
	It("should decode strings and bytes keeping numbers exact", func() {
		target := map[string]interface{}{}
		Expect(common.ScanJSONColumn(`{"id":437654316287951617}`, &target)).To(Succeed())
		Expect(target["id"]).To(Equal(json.Number("437654316287951617")))

		target = map[string]interface{}{}
		Expect(common.ScanJSONColumn([]byte(`{"id":"1"}`), &target)).To(Succeed())
		Expect(target["id"]).To(Equal("1"))
	})

	It("should refuse other column types", func() {
		target := map[string]interface{}{}
		Expect(common.ScanJSONColumn(12, &target)).To(MatchError("type is neither string nor []byte: int 12"))
	})
})
