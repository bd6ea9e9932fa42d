package protocol

import (
	"encoding/json"

	"git.home.luguber.info/inful/docsync/internal/foundation/errors"
)

type envelope struct {
	Type Type `json:"type"`
}

// Encode marshals m, setting its type field.
func Encode(m Message) ([]byte, error) {
	var v any
	switch msg := m.(type) {
	case StartResearch:
		msg.Type = TypeStartResearch
		v = msg
	case RegenerateSection:
		msg.Type = TypeRegenerateSection
		v = msg
	case Status:
		msg.Type = TypeStatus
		v = msg
	case Thinking:
		msg.Type = TypeThinking
		v = msg
	case Complete:
		msg.Type = TypeComplete
		v = msg
	case SectionComplete:
		msg.Type = TypeSectionComplete
		v = msg
	case Error:
		msg.Type = TypeError
		v = msg
	default:
		return nil, errors.ValidationError("unsupported message").
			WithContext("go_type", typeName(m)).
			Build()
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryInternal, "failed to encode message").
			WithContext("message_type", string(m.MessageType())).
			Build()
	}
	return data, nil
}

// Decode parses one message. Unknown types are a validation error so callers can log
// and skip them without tearing down the channel.
func Decode(data []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, errors.WrapError(err, errors.CategoryValidation, "malformed message").Build()
	}

	var (
		msg Message
		err error
	)
	switch env.Type {
	case TypeStatus:
		msg, err = decodeAs[Status](data)
	case TypeThinking:
		msg, err = decodeAs[Thinking](data)
	case TypeComplete:
		msg, err = decodeAs[Complete](data)
	case TypeSectionComplete:
		msg, err = decodeAs[SectionComplete](data)
	case TypeError:
		msg, err = decodeAs[Error](data)
	case TypeStartResearch:
		msg, err = decodeAs[StartResearch](data)
	case TypeRegenerateSection:
		msg, err = decodeAs[RegenerateSection](data)
	case "":
		return nil, errors.ValidationError("message has no type").Build()
	default:
		return nil, errors.ValidationError("unknown message type").
			WithContext("message_type", string(env.Type)).
			Build()
	}
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryValidation, "malformed message payload").
			WithContext("message_type", string(env.Type)).
			Build()
	}
	return msg, nil
}

func decodeAs[T Message](data []byte) (Message, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func typeName(m Message) string {
	if m == nil {
		return "<nil>"
	}
	return string(m.MessageType())
}
