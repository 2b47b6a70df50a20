package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Voice pairs a synthesis voice with the persona name the tutor uses.
type Voice struct {
	Label     string `yaml:"label" json:"label"`
	VoiceID   string `yaml:"voice_id" json:"voice_id"`
	TutorName string `yaml:"tutor_name" json:"tutor_name"`
}

// DefaultVoices is the built-in catalog.
var DefaultVoices = []Voice{
	{Label: "Aria", VoiceID: "9BWtsMINqrJLrRacOk9x", TutorName: "نور"},
	{Label: "Sarah", VoiceID: "EXAVITQu4vr4xnSDxMaL", TutorName: "سارة"},
	{Label: "Laura", VoiceID: "FGY2WhTYpPnrIDTdsKH5", TutorName: "لورا"},
	{Label: "Charlotte", VoiceID: "XB0fDUnXU5powFXDhCwa", TutorName: "شارلوت"},
}

type voicesFile struct {
	Voices []Voice `yaml:"voices"`
}

// LoadVoices reads a YAML catalog of the form
//
//	voices:
//	  - label: Aria
//	    voice_id: 9BWtsMINqrJLrRacOk9x
//	    tutor_name: نور
//
// An empty path returns DefaultVoices.
func LoadVoices(path string) ([]Voice, error) {
	if path == "" {
		return DefaultVoices, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("voices: %w", err)
	}
	var f voicesFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("voices: parse %s: %w", path, err)
	}
	out := f.Voices[:0]
	for _, v := range f.Voices {
		if v.VoiceID == "" {
			continue
		}
		if v.Label == "" {
			v.Label = v.VoiceID
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("voices: %s defines no voices", path)
	}
	return out, nil
}

// TutorNameFor returns the persona name paired with voiceID, or "".
func TutorNameFor(voices []Voice, voiceID string) string {
	for _, v := range voices {
		if v.VoiceID == voiceID {
			return v.TutorName
		}
	}
	return ""
}
