package broker

// Payload type tags for the broker wire protocol. These are the
// envelope-level dispatch keys types.Envelope.PayloadType carries; the
// payload bytes themselves are opaque to this layer until a concrete
// message codec decodes them (left to the caller-supplied MessageCodec
// on Adapter, since the actual trading-server schema is
// outside this runtime's control).
const (
	payloadTypePing            uint32 = 1
	payloadTypeAuth            uint32 = 2
	payloadTypeSymbolList      uint32 = 10
	payloadTypeSymbolDetails   uint32 = 11
	payloadTypeHistoryRequest  uint32 = 20
	payloadTypeHistoryResponse uint32 = 21
	payloadTypeSubscribeSpot   uint32 = 30
	payloadTypeSpotEvent       uint32 = 31
	payloadTypeNewOrder        uint32 = 40
	payloadTypeOrderAccepted   uint32 = 41
	payloadTypeOrderRejected   uint32 = 42
	payloadTypeClosePosition   uint32 = 43
	payloadTypeAmendPosition   uint32 = 44
	payloadTypeExecutionEvent  uint32 = 45
	payloadTypeReconcile       uint32 = 50
	payloadTypeReconcileReply  uint32 = 51
	payloadTypeDealsRequest    uint32 = 52
	payloadTypeDealsReply      uint32 = 53
)
