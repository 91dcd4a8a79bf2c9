package handler

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/goblimey/go-ntrip-analyser/rtcm/framer"
	msm "github.com/goblimey/go-ntrip-analyser/rtcm/msm/message"
	"github.com/goblimey/go-ntrip-analyser/rtcm/type1004"
	"github.com/goblimey/go-ntrip-analyser/rtcm/type1005"
	"github.com/goblimey/go-ntrip-analyser/rtcm/type1006"
	"github.com/goblimey/go-ntrip-analyser/rtcm/type1012"
	"github.com/goblimey/go-ntrip-analyser/rtcm/type1033"
	"github.com/goblimey/go-ntrip-analyser/rtcm/type1230"
	"github.com/goblimey/go-ntrip-analyser/rtcm/utils"
)

// The handler package decodes RTCM3 message frames into readable records.
// See the README for this repository for a description of the RTCM version 3
// protocol.
//
//	h := handler.New(logger)
//
// creates a handler connected to a logger.  The framer package finds the
// frames in a stream of bytes.  Each frame goes to the handler, which
// returns a Message containing the raw frame, the result of the CRC check
// and, if the handler knows how, a broken out version of the embedded
// message:
//
//	for _, frame := range f.Push(buffer[:n]) {
//	    message := h.Decode(frame, time.Now())
//	    fmt.Println(message.String())
//	}
//
// The handler can decode message types 1004 and 1012 (the legacy GPS and
// GLONASS observations), 1005 and 1006 (the base station position), 1033
// (the receiver and antenna descriptions), 1230 (GLONASS code-phase biases)
// and the Multiple Signal Messages, types 1 to 7, for all of the
// constellations.  The structure of these messages is described in the RTCM
// standard, which is not open source.  However, the structure can be
// reverse-engineered by reading existing software such as the RTKLIB
// library, which is written in the C programming language.
//
// Any other message type is returned as an Unsupported record carrying the
// payload in hex.  A message which is too short for its type gives a partial
// record plus an error message.  The handler never fails on bad input: a
// base station can send anything, and one strange message shouldn't stop
// the stream.

// Decoded is a broken out message.  Each of the decoder packages produces
// one of these.
type Decoded interface {
	// Type returns the message type.
	Type() int

	// String returns a readable version of the message.
	String() string
}

// Unsupported is the record produced for a message type that the handler
// can't decode.
type Unsupported struct {
	MessageType int `json:"message_type"`

	// Unsupported is always true.  It's there to mark the record in the
	// JSON and YAML output.
	Unsupported bool `json:"unsupported"`

	// RawPayloadHex is the embedded message in upper case hex.
	RawPayloadHex string `json:"raw_payload_hex"`
}

// Type returns the message type.
func (u *Unsupported) Type() int {
	return u.MessageType
}

// String returns a readable version of the record.
func (u *Unsupported) String() string {
	return fmt.Sprintf("message type %d is not supported\npayload %s\n",
		u.MessageType, u.RawPayloadHex)
}

// Handler decodes message frames.
type Handler struct {
	logger *slog.Logger
}

// New creates a handler.  A nil logger discards the log messages.
func New(logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Handler{logger: logger}
}

// HandleChunks reads chunks of data from chIn, finds the message frames in
// them, decodes each one and sends the result to chOut.  It closes chOut
// when chIn is closed.  Any bytes left over that don't make a complete frame
// are dropped.
func (h *Handler) HandleChunks(chIn <-chan []byte, chOut chan<- Message) {
	defer close(chOut)
	f := framer.New()
	for chunk := range chIn {
		for _, frame := range f.Push(chunk) {
			chOut <- *h.Decode(frame, time.Now())
		}
	}
	if f.Buffered() > 0 {
		h.logger.Debug("end of input", "incomplete_bytes", f.Buffered())
	}
}

// Decode turns a frame into a Message.  The CRC result is copied from the
// frame.  A frame that fails the CRC check is still decoded, so the record
// may contain junk.  Decode doesn't fail:  if the decoder returns an error
// or panics, the message carries the error in ErrorMessage.
func (h *Handler) Decode(frame framer.Frame, receivedAt time.Time) (message *Message) {

	message = &Message{
		MessageType:   frame.MessageType(),
		CRCValid:      frame.CRCValid,
		PayloadLength: len(frame.Payload),
		ReceivedAt:    receivedAt,
		RawData:       frame.RawData,
	}

	defer func() {
		if r := recover(); r != nil {
			message.Readable = nil
			message.ErrorMessage = fmt.Sprintf("panic decoding message type %d: %v",
				message.MessageType, r)
			h.logger.Error("decode", "type", message.MessageType, "panic", r)
		}
	}()

	readable, err := DecodePayload(frame.Payload)
	message.Readable = readable
	if err != nil {
		message.ErrorMessage = err.Error()
		h.logger.Debug("decode", "type", message.MessageType, "error", err)
	}

	return message
}

// decodeFunc is a decoder for one message type.
type decodeFunc func(payload []byte) (Decoded, error)

// decoders is the dispatch table for the message types with fixed layouts.
// The Multiple Signal Messages are handled by range.
var decoders = map[int]decodeFunc{
	utils.MessageType1004: decoder(type1004.GetMessage),
	utils.MessageType1005: decoder(type1005.GetMessage),
	utils.MessageType1006: decoder(type1006.GetMessage),
	utils.MessageType1012: decoder(type1012.GetMessage),
	utils.MessageType1033: decoder(type1033.GetMessage),
	utils.MessageTypeGCPB: decoder(type1230.GetMessage),
}

// decodeMSM decodes all of the Multiple Signal Messages.
var decodeMSM = decoder(msm.GetMessage)

// decoder wraps a GetMessage function as a decodeFunc.  A nil *Message
// stored in a Decoded would not be nil, so that case is handled here.
func decoder[T any, P interface {
	*T
	Decoded
}](getMessage func([]byte) (P, error)) decodeFunc {
	return func(payload []byte) (Decoded, error) {
		m, err := getMessage(payload)
		if m == nil {
			return nil, err
		}
		return m, err
	}
}

// Supported is true if the handler can decode the message type.
func Supported(messageType int) bool {
	_, ok := decoders[messageType]
	return ok || utils.DecodedMSM(messageType)
}

// DecodePayload decodes an embedded message (the frame without the leader
// and the CRC).  It chooses the decoder from the message type.  If the
// message is too short, it returns as much as it could decode plus an
// error.  The result is nil only if the decoder could make nothing of the
// payload.
func DecodePayload(payload []byte) (Decoded, error) {

	if len(payload)*8 < utils.LenMessageType {
		em := fmt.Sprintf("payload of %d bytes is too short to hold a message type",
			len(payload))
		return nil, errors.New(em)
	}

	messageType := int(utils.GetBitsAsUint64(payload, 0, utils.LenMessageType))

	if decode, ok := decoders[messageType]; ok {
		return decode(payload)
	}

	if utils.DecodedMSM(messageType) {
		return decodeMSM(payload)
	}

	u := Unsupported{
		MessageType:   messageType,
		Unsupported:   true,
		RawPayloadHex: utils.HexString(payload),
	}
	return &u, nil
}

// Message contains an RTCM3 message frame, possibly broken out into readable
// form.
type Message struct {
	// MessageType is the type of the RTCM message (the message number).
	MessageType int `json:"message_type"`

	// CRCValid is true if the CRC in the frame matched the contents.
	CRCValid bool `json:"crc_valid"`

	// PayloadLength is the length in bytes of the embedded message.
	PayloadLength int `json:"payload_length"`

	// ReceivedAt is the time that the frame was taken from the stream.
	ReceivedAt time.Time `json:"received_at"`

	// RawData is the message frame in its original binary form
	// including the leader and the CRC.
	RawData []byte `json:"-"`

	// Readable is a broken out version of the RTCM message.  It's nil if
	// the message couldn't be decoded at all.
	Readable Decoded `json:"readable,omitempty"`

	// ErrorMessage contains any error message encountered while decoding
	// the message.
	ErrorMessage string `json:"error,omitempty"`
}

// Malformed is true if decoding produced an error.
func (message *Message) Malformed() bool {
	return len(message.ErrorMessage) > 0
}

// Copy makes a copy of the message and its raw data.  The readable part is
// shared.  Decoded records are never changed once they are made.
func (message *Message) Copy() Message {
	rawData := make([]byte, len(message.RawData))
	copy(rawData, message.RawData)
	newMessage := *message
	newMessage.RawData = rawData
	return newMessage
}

// String returns the message as a readable string.
func (message *Message) String() string {

	titleAndComment := utils.GetTitleAndComment(message.MessageType)

	display := fmt.Sprintf("Message type %d, %s\n",
		message.MessageType, titleAndComment.Title)

	if len(titleAndComment.Comment) > 0 {
		display += titleAndComment.Comment + "\n"
	}

	display += fmt.Sprintf("Frame length %d bytes:\n", len(message.RawData))
	display += hex.Dump(message.RawData) + "\n"

	if !message.CRCValid {
		display += "CRC check failed\n"
	}

	if len(message.ErrorMessage) > 0 {
		display += message.ErrorMessage + "\n"
	}

	if message.Readable != nil {
		display += message.Readable.String()
	}

	return display
}
