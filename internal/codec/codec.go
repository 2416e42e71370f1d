// Package codec turns states into URL-safe tokens and back.
//
// Two token formats exist. The canonical one (v2) is a tagged protobuf
// Struct holding the JSON form of the state. The legacy one is the fixed
// binary layout written by the first release; it stays readable so old
// shared links keep working. Both are carried as unpadded base64url.
package codec

import (
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alanyoungcy/optionscalc/internal/domain"
)

// Format selects a token encoding.
type Format string

const (
	FormatV2     Format = "v2"
	FormatLegacy Format = "legacy"
)

// ParseFormat maps a user supplied name to a Format. Empty means v2.
func ParseFormat(name string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(name))) {
	case "", FormatV2:
		return FormatV2, nil
	case FormatLegacy:
		return FormatLegacy, nil
	}
	return "", fmt.Errorf("codec: %w: %q", domain.ErrUnsupportedFormat, name)
}

type decoder struct {
	format Format
	decode func(raw []byte) (domain.State, error)
}

// decoders are tried newest first.
var decoders = []decoder{
	{FormatV2, decodeV2},
	{FormatLegacy, decodeLegacy},
}

// Encode writes s in the canonical format.
func Encode(s domain.State) (string, error) {
	return EncodeAs(s, FormatV2)
}

// EncodeLegacy writes s in the legacy binary layout.
func EncodeLegacy(s domain.State) (string, error) {
	return EncodeAs(s, FormatLegacy)
}

// EncodeAs writes s in the given format.
func EncodeAs(s domain.State, f Format) (string, error) {
	var (
		raw []byte
		err error
	)
	switch f {
	case FormatV2:
		raw, err = encodeV2(s)
	case FormatLegacy:
		raw, err = encodeLegacy(s)
	default:
		return "", fmt.Errorf("codec: %w: %q", domain.ErrUnsupportedFormat, f)
	}
	if err != nil {
		return "", fmt.Errorf("codec: encode %s: %w: %w", f, domain.ErrEncode, err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// Decode parses a token of any known format. Errors wrap domain.ErrDecode.
func Decode(token string) (domain.State, error) {
	s, _, err := DecodeFormat(token)
	return s, err
}

// DecodeFormat is Decode that also reports which format matched.
func DecodeFormat(token string) (domain.State, Format, error) {
	raw, err := unwrap(token)
	if err != nil {
		return domain.State{}, "", fmt.Errorf("codec: %w: %w", domain.ErrDecode, err)
	}

	var errs []error
	for _, d := range decoders {
		s, err := d.decode(raw)
		if err == nil {
			normalize(&s)
			return s, d.format, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", d.format, err))
	}
	return domain.State{}, "", fmt.Errorf("codec: %w: %w", domain.ErrDecode, errors.Join(errs...))
}

// DecodeOrDefault decodes token and falls back to the default state when
// the token cannot be read. The failure is only logged.
func DecodeOrDefault(token string, logger *slog.Logger) domain.State {
	s, err := Decode(token)
	if err != nil {
		if logger != nil {
			logger.Warn("codec: invalid state token, using default state",
				slog.Int("token_len", len(token)),
				slog.String("error", err.Error()),
			)
		}
		return domain.DefaultState()
	}
	return s
}

func unwrap(token string) ([]byte, error) {
	token = strings.TrimRight(strings.TrimSpace(token), "=")
	if token == "" {
		return nil, errors.New("empty token")
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("base64url: %w", err)
	}
	if len(raw) == 0 {
		return nil, errors.New("empty payload")
	}
	return raw, nil
}

// normalize restores the counter invariant on states written by older or
// foreign encoders.
func normalize(s *domain.State) {
	if s.Legs == nil {
		s.Legs = []domain.Leg{}
	}
	for _, l := range s.Legs {
		if l.ID >= s.NextOptID {
			s.NextOptID = l.ID + 1
		}
	}
}
