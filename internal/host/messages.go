// Package host connects the sidebar to the process that owns its data: it
// decodes inbound host messages and data files, and delivers outbound
// messages back to the host.
package host

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/go-viper/mapstructure/v2"

	"github.com/leapstack-labs/sidebar/internal/sidebar"
	"github.com/leapstack-labs/sidebar/pkg/core"
)

// Inbound message types.
const (
	TypeInit                = "init"
	TypeHistoryUpdate       = "historyUpdate"
	TypeHistoryUpsert       = "historyUpsert"
	TypeHistoryRemove       = "historyRemove"
	TypeEnvironmentUpdate   = "environmentUpdate"
	TypeEnvironmentRemove   = "environmentRemove"
	TypeCommandGroupsUpdate = "commandGroupsUpdate"
	TypeCatalogUpdate       = "catalogUpdate"
)

// Decoding errors.
var (
	ErrUnknownMessage   = errors.New("unknown message type")
	ErrMalformedMessage = errors.New("malformed message")
)

// Message is a decoded inbound host message.
type Message struct {
	Type string
	// Snapshot is set for init messages.
	Snapshot *core.Snapshot
	// Update is set for every other message type.
	Update core.Update
}

// Apply commits the message to store and returns the new version.
func (m Message) Apply(store *sidebar.Store) uint64 {
	if m.Snapshot != nil {
		return store.Initialize(*m.Snapshot)
	}
	return store.ApplyUpdate(m.Update)
}

// Decoder turns raw host payloads into messages. Malformed list entries are
// dropped and logged so one bad run never hides the rest.
type Decoder struct {
	logger *slog.Logger
}

// NewDecoder creates a decoder. A nil logger discards output.
func NewDecoder(logger *slog.Logger) *Decoder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Decoder{logger: logger}
}

// DecodeJSON decodes a JSON message object.
func (d *Decoder) DecodeJSON(data []byte) (Message, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return Message{}, fmt.Errorf("%w: %w", ErrMalformedMessage, err)
	}
	return d.Decode(raw)
}

// Decode decodes a generic message object keyed by its "type" field.
func (d *Decoder) Decode(raw map[string]any) (Message, error) {
	typ, _ := raw["type"].(string)
	msg := Message{Type: typ}

	switch typ {
	case TypeInit:
		snap := d.DecodeSnapshot(raw)
		msg.Snapshot = &snap
	case TypeHistoryUpdate:
		msg.Update = core.Update{ReplaceHistory: true, History: d.decodeHistory(raw["history"])}
		if msg.Update.History == nil {
			msg.Update.History = []core.HistoryEntry{}
		}
	case TypeHistoryUpsert:
		entries := d.decodeHistory(raw["history"])
		if run, ok := raw["run"]; ok {
			entries = append(entries, d.decodeHistory([]any{run})...)
		}
		if len(entries) == 0 {
			return Message{}, fmt.Errorf("%w: %s without runs", ErrMalformedMessage, typ)
		}
		msg.Update = core.Update{History: entries}
	case TypeHistoryRemove:
		var ids []string
		if err := decode(raw["ids"], &ids); err != nil {
			return Message{}, fmt.Errorf("%w: %w", ErrMalformedMessage, err)
		}
		if len(ids) == 0 {
			return Message{}, fmt.Errorf("%w: %s without ids", ErrMalformedMessage, typ)
		}
		msg.Update = core.Update{RemoveHistory: ids}
	case TypeEnvironmentUpdate:
		msg.Update = core.Update{Environment: d.decodeEnvironment(raw["environment"])}
	case TypeEnvironmentRemove:
		var keys []string
		if err := decode(raw["keys"], &keys); err != nil {
			return Message{}, fmt.Errorf("%w: %w", ErrMalformedMessage, err)
		}
		if len(keys) == 0 {
			return Message{}, fmt.Errorf("%w: %s without keys", ErrMalformedMessage, typ)
		}
		msg.Update = core.Update{RemoveEnvironment: keys}
	case TypeCommandGroupsUpdate:
		groups, err := json.Marshal(raw["commandGroups"])
		if err != nil {
			return Message{}, fmt.Errorf("%w: %w", ErrMalformedMessage, err)
		}
		msg.Update = core.Update{CommandGroups: groups}
	case TypeCatalogUpdate:
		msg.Update = core.Update{
			ContextItems: d.decodeCatalog(raw["contextItems"]),
			Providers:    d.decodeCatalog(raw["providers"]),
		}
	default:
		return Message{}, fmt.Errorf("%w: %q", ErrUnknownMessage, typ)
	}

	return msg, nil
}

// DecodeSnapshot decodes a full snapshot object. Missing collections stay nil
// and render as empty lists.
func (d *Decoder) DecodeSnapshot(raw map[string]any) core.Snapshot {
	snap := core.Snapshot{
		History:      d.decodeHistory(raw["history"]),
		Environment:  d.decodeEnvironment(raw["environment"]),
		ContextItems: d.decodeCatalog(raw["contextItems"]),
		Providers:    d.decodeCatalog(raw["providers"]),
	}
	if groups, ok := raw["commandGroups"]; ok && groups != nil {
		if b, err := json.Marshal(groups); err == nil {
			snap.CommandGroups = b
		} else {
			d.logger.Warn("dropping malformed command groups", slog.Any("error", err))
		}
	}
	return snap
}

func (d *Decoder) decodeHistory(v any) []core.HistoryEntry {
	list, ok := v.([]any)
	if !ok {
		if v != nil {
			d.logger.Warn("dropping malformed history", slog.String("type", fmt.Sprintf("%T", v)))
		}
		return nil
	}

	entries := make([]core.HistoryEntry, 0, len(list))
	for i, item := range list {
		var e core.HistoryEntry
		if err := decode(item, &e); err != nil {
			d.logger.Warn("dropping malformed history entry", slog.Int("index", i), slog.Any("error", err))
			continue
		}
		if e.ID == "" {
			d.logger.Warn("dropping history entry without id", slog.Int("index", i))
			continue
		}
		entries = append(entries, e)
	}
	return entries
}

func (d *Decoder) decodeEnvironment(v any) map[string]string {
	if v == nil {
		return nil
	}
	var env map[string]string
	if err := decode(v, &env); err != nil {
		d.logger.Warn("dropping malformed environment", slog.Any("error", err))
		return nil
	}
	return env
}

func (d *Decoder) decodeCatalog(v any) []core.CatalogItem {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	items := make([]core.CatalogItem, 0, len(list))
	for i, item := range list {
		var c core.CatalogItem
		if err := decode(item, &c); err != nil || c.ID == "" {
			d.logger.Warn("dropping malformed catalog item", slog.Int("index", i), slog.Any("error", err))
			continue
		}
		items = append(items, c)
	}
	return items
}

var rawMessageType = reflect.TypeOf(json.RawMessage(nil))

// rawJSONHook keeps arbitrary nested values (pipeline snapshots) as raw JSON.
func rawJSONHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to != rawMessageType {
		return data, nil
	}
	if data == nil {
		return json.RawMessage(nil), nil
	}
	return json.Marshal(data)
}

func decode(input, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       rawJSONHook,
		Result:           out,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}
	return dec.Decode(input)
}
