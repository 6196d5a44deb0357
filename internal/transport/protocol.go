// Package transport delivers each player's share of the game's changes over
// websockets and feeds the players' commands back into the game loop.
package transport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/talgya/colonyserver/internal/changes"
	"github.com/talgya/colonyserver/internal/session"
	"github.com/talgya/colonyserver/internal/world"
)

// Command types a client may send.
const (
	CmdAttack        = "attack"
	CmdQueueAttack   = "queue_attack"
	CmdProposeTreaty = "propose_treaty"
	CmdCounterTreaty = "counter_treaty"
	CmdRespond       = "respond"
	CmdWithdraw      = "withdraw"
	CmdOpenTrade     = "open_trade"
	CmdBuy           = "buy"
	CmdSell          = "sell"
	CmdGift          = "gift"
	CmdCloseTrade    = "close_trade"
	CmdTribute       = "demand_tribute"
)

// Command is one request from a player. Which fields matter depends on Type.
type Command struct {
	ID         string             `json:"id,omitempty"` // Echoed in the result
	Type       string             `json:"type"`
	Unit       uint64             `json:"unit,omitempty"`
	Target     *world.HexCoord    `json:"target,omitempty"`
	Recipient  world.PlayerID     `json:"recipient,omitempty"`
	Settlement world.SettlementID `json:"settlement,omitempty"`
	Session    session.Key        `json:"session,omitempty"`
	Terms      []session.Term     `json:"terms,omitempty"`
	Accept     bool               `json:"accept,omitempty"`
	Goods      int                `json:"goods,omitempty"`
	Amount     int                `json:"amount,omitempty"`
}

// Frame types sent to clients.
const (
	FrameWelcome = "welcome"
	FrameChanges = "changes"
	FrameResult  = "result"
)

// Welcome greets a freshly connected player.
type Welcome struct {
	Type   string         `json:"type"`
	Player world.PlayerID `json:"player"`
	Turn   int            `json:"turn"`
	Date   string         `json:"date"`
}

// ChangesFrame carries the changes one player may see.
type ChangesFrame struct {
	Type    string           `json:"type"`
	Turn    int              `json:"turn"`
	Changes []changes.Change `json:"changes"`
}

// Result answers a command.
type Result struct {
	Type  string `json:"type"`
	ID    string `json:"id,omitempty"`
	OK    bool   `json:"ok"`
	Value any    `json:"value,omitempty"`
	Error string `json:"error,omitempty"`
}

const commandSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["type"],
  "properties": {
    "id": {"type": "string", "maxLength": 64},
    "type": {"enum": [
      "attack", "queue_attack", "propose_treaty", "counter_treaty", "respond",
      "withdraw", "open_trade", "buy", "sell", "gift", "close_trade", "demand_tribute"
    ]},
    "unit": {"type": "integer", "minimum": 1},
    "target": {
      "type": "object",
      "required": ["q", "r"],
      "properties": {"q": {"type": "integer"}, "r": {"type": "integer"}}
    },
    "recipient": {"type": "integer", "minimum": 1},
    "settlement": {"type": "integer", "minimum": 1},
    "session": {"type": "string", "minLength": 1},
    "terms": {
      "type": "array",
      "maxItems": 8,
      "items": {
        "type": "object",
        "required": ["kind"],
        "properties": {
          "kind": {"type": "integer", "minimum": 0, "maximum": 3},
          "from": {"type": "integer", "minimum": 1},
          "stance": {"type": "integer", "minimum": 0, "maximum": 4},
          "amount": {"type": "integer", "minimum": 0},
          "goods": {"type": "integer", "minimum": 0, "maximum": 16},
          "colony": {"type": "integer", "minimum": 1}
        }
      }
    },
    "accept": {"type": "boolean"},
    "goods": {"type": "integer", "minimum": 0, "maximum": 16},
    "amount": {"type": "integer", "minimum": 1, "maximum": 100000}
  },
  "allOf": [
    {"if": {"properties": {"type": {"enum": ["attack", "queue_attack"]}}},
     "then": {"required": ["unit", "target"]}},
    {"if": {"properties": {"type": {"const": "propose_treaty"}}},
     "then": {"required": ["unit", "recipient", "terms"]}},
    {"if": {"properties": {"type": {"const": "counter_treaty"}}},
     "then": {"required": ["session", "terms"]}},
    {"if": {"properties": {"type": {"enum": ["respond", "withdraw", "close_trade"]}}},
     "then": {"required": ["session"]}},
    {"if": {"properties": {"type": {"enum": ["buy", "sell", "gift"]}}},
     "then": {"required": ["session", "goods", "amount"]}},
    {"if": {"properties": {"type": {"enum": ["open_trade", "demand_tribute"]}}},
     "then": {"required": ["unit", "settlement"]}}
  ]
}`

var commandValidator = mustCompile("command.schema.json", commandSchema)

func mustCompile(name, src string) *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	if err := c.AddResource(name, strings.NewReader(src)); err != nil {
		panic(err)
	}
	return c.MustCompile(name)
}

// DecodeCommand validates raw against the command schema and decodes it.
func DecodeCommand(raw []byte) (Command, error) {
	var cmd Command
	var doc any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return cmd, fmt.Errorf("decode command: %w", err)
	}
	if err := commandValidator.Validate(doc); err != nil {
		return cmd, fmt.Errorf("invalid command: %w", err)
	}
	if err := json.Unmarshal(raw, &cmd); err != nil {
		return cmd, fmt.Errorf("decode command: %w", err)
	}
	return cmd, nil
}
