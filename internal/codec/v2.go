package codec

import (
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/alanyoungcy/optionscalc/internal/domain"
)

// tagV2 is the first byte of every v2 payload.
const tagV2 byte = 0xA2

func encodeV2(s domain.State) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal state: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("state as map: %w", err)
	}
	st, err := structpb.NewStruct(m)
	if err != nil {
		return nil, fmt.Errorf("build struct: %w", err)
	}
	body, err := proto.MarshalOptions{Deterministic: true}.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("marshal struct: %w", err)
	}
	return append([]byte{tagV2}, body...), nil
}

func decodeV2(raw []byte) (domain.State, error) {
	if raw[0] != tagV2 {
		return domain.State{}, errors.New("missing v2 tag")
	}
	var st structpb.Struct
	if err := proto.Unmarshal(raw[1:], &st); err != nil {
		return domain.State{}, fmt.Errorf("unmarshal struct: %w", err)
	}
	data, err := json.Marshal(st.AsMap())
	if err != nil {
		return domain.State{}, fmt.Errorf("struct as json: %w", err)
	}
	var s domain.State
	if err := json.Unmarshal(data, &s); err != nil {
		return domain.State{}, fmt.Errorf("unmarshal state: %w", err)
	}
	if err := validate(s); err != nil {
		return domain.State{}, err
	}
	return s, nil
}

// validate rejects payloads that parse but cannot be a state.
func validate(s domain.State) error {
	if s.Symbol.Ticker == "" {
		return errors.New("missing symbol")
	}
	switch s.Display.Profit {
	case domain.ProfitAbsolute, domain.ProfitPercentRisk:
	default:
		return fmt.Errorf("unknown profit display %q", s.Display.Profit)
	}
	seen := make(map[int]bool, len(s.Legs))
	for _, l := range s.Legs {
		if seen[l.ID] {
			return fmt.Errorf("duplicate leg id %d", l.ID)
		}
		seen[l.ID] = true
		if l.Type != domain.Call && l.Type != domain.Put {
			return fmt.Errorf("leg %d: unknown type %q", l.ID, l.Type)
		}
		if l.Sale != domain.Buy && l.Sale != domain.Sell {
			return fmt.Errorf("leg %d: unknown sale %q", l.ID, l.Sale)
		}
	}
	return nil
}
