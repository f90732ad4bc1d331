package voice

import (
	"encoding/xml"
	"log"
	"strings"
)

// Call-control verbs rendered into the gateway's XML response body.

type Say struct {
	XMLName xml.Name `xml:"Say"`
	Voice   string   `xml:"voice,attr"`
	Text    string   `xml:",chardata"`
}

func say(text string) Say {
	return Say{Voice: "woman", Text: text}
}

type Pause struct {
	XMLName xml.Name `xml:"Pause"`
	Length  int      `xml:"length,attr"`
}

type GetDigits struct {
	XMLName     xml.Name `xml:"GetDigits"`
	Timeout     int      `xml:"timeout,attr"`
	FinishOnKey string   `xml:"finishOnKey,attr"`
	CallbackURL string   `xml:"callbackUrl,attr"`
	Say         Say
}

type Record struct {
	XMLName     xml.Name `xml:"Record"`
	Timeout     int      `xml:"timeout,attr"`
	TrimSilence bool     `xml:"trimSilence,attr"`
	CallbackURL string   `xml:"callbackUrl,attr"`
	Say         Say
}

type Hangup struct {
	XMLName xml.Name `xml:"Hangup"`
}

// RenderMarkup wraps the verbs in a Response document. Marshal errors
// can only come from programmer mistakes in the verb structs, so they
// are logged and skipped rather than propagated to the gateway.
func RenderMarkup(verbs ...any) string {
	var b strings.Builder
	b.WriteString(xml.Header)
	b.WriteString("<Response>")
	enc := xml.NewEncoder(&b)
	for _, v := range verbs {
		if err := enc.Encode(v); err != nil {
			log.Printf("voice: encode verb: %v", err)
		}
	}
	enc.Flush()
	b.WriteString("</Response>")
	return b.String()
}
