package model

// Source is one retrieved document cited by an answer. The ASIN is
// extracted from the document text, or an ITEM-<position> placeholder
// when the marker is absent.
type Source struct {
	ASIN    string `json:"asin"`
	Snippet string `json:"snippet"`
}

// AnswerResponse is the per-query result of the answer generator. Mode
// records which generation path produced the answer and is not part of
// the wire response.
type AnswerResponse struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
	Mode    string   `json:"-"`
}
