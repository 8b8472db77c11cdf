package service

type Config struct {
	URL string `yaml:"url"`
}

type FieldType string

const (
	FieldTypeTextPlain       FieldType = "text/plain"
	FieldTypeApplicationJSON FieldType = "application/json"
	FieldTypeAudioWav        FieldType = "audio/wav"
	FieldTypeAudioFlac       FieldType = "audio/flac"
	FieldTypeAudioMpeg       FieldType = "audio/mpeg"
	FieldTypeAudioOgg        FieldType = "audio/ogg"
)

type FieldDescription struct {
	Name string      `json:"name"`
	Type []FieldType `json:"type"`
}

type Tag struct {
	Name    string `json:"name"`
	Acronym string `json:"acronym"`
}

type Status string

const (
	StatusAvailable   Status = "available"
	StatusUnavailable Status = "unavailable"
)

// Descriptor is what the service publishes about itself on /service and to
// the engines it announces to.
type Descriptor struct {
	Name          string             `json:"name"`
	Slug          string             `json:"slug"`
	URL           string             `json:"url"`
	Summary       string             `json:"summary"`
	Description   string             `json:"description"`
	Status        Status             `json:"status"`
	DataInFields  []FieldDescription `json:"data_in_fields"`
	DataOutFields []FieldDescription `json:"data_out_fields"`
	Tags          []Tag              `json:"tags"`
	HasAI         bool               `json:"has_ai"`
	DocsURL       string             `json:"docs_url"`
}

const (
	Name = "Hugging Face text-to-audio"
	Slug = "hugging-face-text-to-audio"
)

const summary = "Queries text-to-audio models from the Hugging Face inference API."

const description = `Forwards a text to a text-to-audio model hosted on the Hugging Face inference API and returns the produced audio unchanged.

Any model of the inference API that takes {"inputs": "<text>"} and answers with audio can be used, e.g. facebook/musicgen-small.

The model may need some time to load on the remote side; the first call can fail with a 503 and an estimated loading time.`

func NewDescriptor(cfg *Config) *Descriptor {
	url := ""
	if cfg != nil {
		url = cfg.URL
	}

	return &Descriptor{
		Name:        Name,
		Slug:        Slug,
		URL:         url,
		Summary:     summary,
		Description: description,
		Status:      StatusAvailable,
		DataInFields: []FieldDescription{
			{Name: "input_text", Type: []FieldType{FieldTypeTextPlain}},
			{Name: "json_description", Type: []FieldType{FieldTypeApplicationJSON}},
		},
		DataOutFields: []FieldDescription{
			{Name: "result", Type: []FieldType{FieldTypeAudioWav, FieldTypeAudioFlac, FieldTypeAudioMpeg, FieldTypeAudioOgg}},
		},
		Tags: []Tag{
			{Name: "Natural Language Processing", Acronym: "NLP"},
			{Name: "Audio Generation", Acronym: "AG"},
		},
		HasAI:   true,
		DocsURL: "https://docs.swiss-ai-center.ch/reference/services/hugging-face-text-to-audio/",
	}
}
