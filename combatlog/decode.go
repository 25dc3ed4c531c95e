package combatlog

import (
	"bytes"
	"io"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type rawEvent struct {
	Timestamp      *int64 `json:"timestamp"`
	Type           string `json:"type"`
	SourceID       int    `json:"sourceID"`
	SourceInstance int    `json:"sourceInstance"`
	TargetID       int    `json:"targetID"`
	TargetInstance int    `json:"targetInstance"`
	AbilityGameID  int    `json:"abilityGameID"`

	Amount   int `json:"amount"`
	Absorbed int `json:"absorbed"`
	Overheal int `json:"overheal"`
	HitType  int `json:"hitType"`

	ResourceChange     int `json:"resourceChange"`
	ResourceChangeType int `json:"resourceChangeType"`
	Waste              int `json:"waste"`

	Stack    int   `json:"stack"`
	Duration int64 `json:"duration"`

	TalentTree []struct {
		ID   int `json:"id"`
		Rank int `json:"rank"`
	} `json:"talentTree"`
	Gear []struct {
		ID int `json:"id"`
	} `json:"gear"`
}

type rawDocument struct {
	Player    int         `json:"player"`
	Combatant *Build      `json:"combatant"`
	Events    []*rawEvent `json:"events"`
}

// Document is a decoded raw log for one player.
type Document struct {
	Player    int
	Combatant Build
	Events    []Event

	// Skipped counts entries that could not be used (unknown type, no
	// timestamp). They are dropped, never fatal.
	Skipped int
}

// Decode reads either {"player":..,"combatant":..,"events":[..]} or a bare
// array of events. The combatant falls back to the player's combatantinfo
// event when the document does not carry one.
func Decode(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	var raw rawDocument

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		err = json.Unmarshal(trimmed, &raw.Events)
	} else {
		err = json.Unmarshal(trimmed, &raw)
	}
	if err != nil {
		return nil, errors.Wrap(err, "decode combat log")
	}

	doc := &Document{
		Player: raw.Player,
		Events: make([]Event, 0, len(raw.Events)),
	}
	if raw.Combatant != nil {
		doc.Combatant = *raw.Combatant
	}

	for _, re := range raw.Events {
		if re == nil || re.Timestamp == nil || !EventType(re.Type).Known() {
			doc.Skipped++
			continue
		}

		if EventType(re.Type) == CombatantInfo && doc.Combatant.Empty() && (doc.Player == 0 || doc.Player == re.SourceID) {
			doc.Combatant = buildFromRaw(re)
			if doc.Player == 0 {
				doc.Player = re.SourceID
			}
		}

		doc.Events = append(doc.Events, Event{
			Timestamp: *re.Timestamp,
			Type:      EventType(re.Type),
			Ability:   re.AbilityGameID,
			Source:    Actor{ID: re.SourceID, Instance: re.SourceInstance},
			Target:    Actor{ID: re.TargetID, Instance: re.TargetInstance},

			Amount:   re.Amount,
			Absorbed: re.Absorbed,
			Overheal: re.Overheal,
			HitType:  re.HitType,

			ResourceType:   re.ResourceChangeType,
			ResourceChange: re.ResourceChange,
			Waste:          re.Waste,

			Stack:    re.Stack,
			Duration: re.Duration,
		})
	}

	return doc, nil
}

func buildFromRaw(re *rawEvent) Build {
	b := Build{
		Talents: make(map[int]int, len(re.TalentTree)),
	}
	for _, t := range re.TalentTree {
		rank := t.Rank
		if rank == 0 {
			rank = 1
		}
		b.Talents[t.ID] = rank
	}
	for _, g := range re.Gear {
		if g.ID != 0 {
			b.Items = append(b.Items, g.ID)
		}
	}
	return b
}
