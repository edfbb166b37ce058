package event_test

import (
	"approvalflow/event"
	"encoding/json"
	"testing"

	"github.com/fundwit/go-commons/types"
	. "github.com/onsi/gomega"
)

func TestPayloadColumn(t *testing.T) {
	RegisterTestingT(t)

	t.Run("should keep ids and nested documents through the column", func(t *testing.T) {
		activityID := types.ID(437654316287951617)
		p := event.Payload{
			"activityId": activityID.String(),
			"type":       "creation",
			"info":       map[string]interface{}{"source": types.ID(437654316287951618).String()},
		}
		v, err := p.Value()
		Expect(err).To(BeNil())

		scanned := event.Payload{}
		Expect(scanned.Scan([]byte(v.(string)))).To(BeNil())
		Expect(scanned["activityId"]).To(Equal("437654316287951617"))
		Expect(scanned["info"]).To(Equal(map[string]interface{}{"source": "437654316287951618"}))
	})

	t.Run("should not round numbers wider than a float mantissa", func(t *testing.T) {
		scanned := event.Payload{}
		Expect(scanned.Scan(`{"userId":437654316287951617}`)).To(BeNil())
		Expect(scanned["userId"]).To(Equal(json.Number("437654316287951617")))
	})
}
