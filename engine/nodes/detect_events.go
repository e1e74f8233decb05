package nodes

import (
	"fmt"

	contractx "github.com/haneiva1/autoventas/engine/contract"
	"github.com/haneiva1/autoventas/engine/detect"
)

func DetectEvents(in *GraphState) (*GraphState, error) {
	if in == nil || in.Conversation == nil {
		return nil, fmt.Errorf("%w: conversation snapshot is missing", contractx.ErrValidation)
	}

	in.Events = detect.Detect(in.Text, in.Conversation, detect.Signals{
		HasAttachment:   in.HasAttachment,
		PaymentApproved: in.PaymentApproved,
		PaymentRejected: in.PaymentRejected,
		SessionExpired:  in.SessionExpired,
	})
	return in, nil
}
