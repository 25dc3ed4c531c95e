package analysis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"hash"
	"hash/fnv"
	"strings"

	"logreplay/combatlog"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

const maxRequestEvents = 32 << 20

// Request is what clients send: a profile name and a raw combat log.
type Request struct {
	Profile   string           `json:"profile"`
	Player    int              `json:"player,omitempty"`
	Combatant *combatlog.Build `json:"combatant,omitempty"`
	Events    json.RawMessage  `json:"events"`

	// Token is the reCAPTCHA response, ignored when no secret is configured.
	Token string `json:"token,omitempty"`
}

func (rq *Request) CheckOptionValidation() bool {
	rq.Profile = strings.TrimSpace(rq.Profile)

	switch {
	case rq.Profile == "":
	case len(rq.Profile) > 64:
	case rq.Player < 0:
	case len(bytes.TrimSpace(rq.Events)) == 0:
	case len(rq.Events) > maxRequestEvents:
	default:
		return true
	}

	return false
}

// Hash identifies the analysis a request asks for. Two requests with the same
// hash produce the same result.
func (rq *Request) Hash() hash.Hash {
	h := fnv.New128a()

	fmt.Fprint(h, strings.ToLower(rq.Profile), "|", rq.Player, "|")
	if rq.Combatant != nil {
		jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(h).Encode(rq.Combatant)
	}
	fmt.Fprint(h, "|")
	h.Write(bytes.TrimSpace(rq.Events))

	return h
}

// Document decodes the request events. Player and combatant given in the
// request override the ones found in the log.
func (rq *Request) Document() (*combatlog.Document, error) {
	doc, err := combatlog.Decode(bytes.NewReader(rq.Events))
	if err != nil {
		return nil, errors.WithStack(err)
	}

	if rq.Player != 0 {
		doc.Player = rq.Player
	}
	if rq.Combatant != nil {
		doc.Combatant = *rq.Combatant
	}
	return doc, nil
}
