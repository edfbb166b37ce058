package common_test

import (
	"approvalflow/common"
	"bytes"
	"encoding/json"
	"os"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"
)

var _ = Describe("Log", func() {
	Describe("DefaultFieldsHook", func() {
		It("should attach service fields to every entry", func() {
			os.Setenv("SERVICE_NAME", "approvals-test")
			defer os.Unsetenv("SERVICE_NAME")

			logger := logrus.New()
			logger.Formatter = &logrus.JSONFormatter{}
			logger.AddHook(&common.DefaultFieldsHook{})
			buf := &bytes.Buffer{}
			logger.Out = buf

			logger.Info("hello")

			fields := map[string]interface{}{}
			Expect(json.Unmarshal(buf.Bytes(), &fields)).To(Succeed())
			Expect(fields["serviceName"]).To(Equal("approvals-test"))
			Expect(fields["serviceInstance"]).ToNot(BeEmpty())
			Expect(fields["msg"]).To(Equal("hello"))
		})
	})

	Describe("GetServiceName", func() {
		It("should fall back to the default name", func() {
			os.Unsetenv("SERVICE_NAME")
			Expect(common.GetServiceName()).To(Equal("approvalflow"))
		})
	})

	Describe("ConfigureLogger", func() {
		It("should select json formatter when requested", func() {
			os.Setenv("LOG_FORMAT", "json")
			defer os.Unsetenv("LOG_FORMAT")

			logger := logrus.New()
			common.ConfigureLogger(logger)
			_, ok := logger.Formatter.(*logrus.JSONFormatter)
			Expect(ok).To(BeTrue())
		})
	})
})
