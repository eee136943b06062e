// Package render builds the HTML fragments the chat widget displays.
package render

import (
	"fmt"
	"html"
	"strings"

	"github.com/Skufu/SymptomDesk/internal/recommend"
)

const (
	safetyNote   = "Seek medical care urgently if symptoms are severe or worsening."
	maxWhyLines  = 3
	mutedStyle   = "color: rgba(255,255,255,0.78);"
	imageStyle   = "max-width:160px; width:160px; height:auto; border-radius:10px; border:1px solid rgba(255,255,255,0.06);"
	defaultLabel = "Possible condition"
)

func esc(s string) string { return html.EscapeString(s) }

func heading(title string) string {
	return "<div><strong>" + esc(title) + "</strong></div>"
}

func para(text string) string {
	return `<div style="margin-top:0.35rem;">` + text + "</div>"
}

func namePrefix(userName string) string {
	if strings.TrimSpace(userName) == "" {
		return ""
	}
	return esc(userName) + ", "
}

// Welcome is the first bot message of every session.
func Welcome(botName string) string {
	return heading("Welcome") +
		para(fmt.Sprintf("Hi, I’m <strong>%s</strong>. I can suggest common over-the-counter options based on the symptoms you describe.", esc(botName))) +
		para("I’m not a doctor and can’t diagnose you. May I know your name?") +
		`<div style="margin-top:0.65rem; ` + mutedStyle + `"><strong>Safety:</strong> If symptoms are severe or worsening, seek urgent medical care.</div>`
}

func AskName() string {
	return "I didn’t catch your name. May I know your name?"
}

func NameAck(name string) string {
	return fmt.Sprintf("Nice to meet you, <strong>%s</strong>!<br><br>", esc(name)) +
		heading("Symptoms") +
		para("How can I help today? Please describe your symptoms (and how long you’ve had them).")
}

// GreetingNudge answers a bare greeting once the user's name is known.
func GreetingNudge(userName string) string {
	greet := "Hello again"
	if n := strings.TrimSpace(userName); n != "" {
		greet += ", " + esc(n)
	}
	return heading("Symptoms") +
		para(greet+"! Tell me what symptoms you have and how long you’ve had them.")
}

// Analysis renders the reply for one symptom analysis.
func Analysis(a recommend.Analysis, userName string) string {
	switch a.Outcome {
	case recommend.OutcomeRecommended:
		return recommendations(a, userName)
	case recommend.OutcomeNoMatch:
		return noMatch(userName)
	default:
		return insufficient(a, userName)
	}
}

func insufficient(a recommend.Analysis, userName string) string {
	var b strings.Builder
	b.WriteString(heading("Symptoms"))
	b.WriteString(para(namePrefix(userName) + "I’m sorry you’re feeling unwell. I don’t have enough detail to name a likely condition yet."))
	b.WriteString("<br>")
	if a.OTCSuggestion != "" {
		fmt.Fprintf(&b, "<strong>Common OTC option:</strong> %s (follow the label directions)<br><br>", esc(a.OTCSuggestion))
	}
	b.WriteString("<strong>Quick questions:</strong><br>")
	b.WriteString("1) How long have you had these symptoms?<br>")
	b.WriteString("2) What are the top 3 symptoms (for example: cough/sore throat, vomiting/diarrhea, burning urination, headache)?<br>")
	b.WriteString("3) Any emergency warning signs (chest pain, trouble breathing, confusion, blood in vomit/stool/urine)?<br><br>")
	b.WriteString("<strong>Safety note:</strong> " + safetyNote)
	return b.String()
}

func noMatch(userName string) string {
	var b strings.Builder
	b.WriteString(heading("Symptoms"))
	b.WriteString(para(namePrefix(userName) + "I’m sorry you’re feeling unwell. I can’t name a likely condition from that alone."))
	b.WriteString("<br>")
	b.WriteString("<strong>Quick questions:</strong><br>")
	b.WriteString("1) How long have you had these symptoms?<br>")
	b.WriteString("2) What other symptoms do you have (cough/sore throat, vomiting/diarrhea, shortness of breath)?<br><br>")
	b.WriteString("<strong>Safety note:</strong> " + safetyNote)
	return b.String()
}

func recommendations(a recommend.Analysis, userName string) string {
	var items strings.Builder
	for _, rec := range a.Recommendations {
		items.WriteString(recommendationItem(rec))
	}

	var b strings.Builder
	b.WriteString(heading("Summary"))
	b.WriteString(para(namePrefix(userName) + "here’s what I found from your symptoms:"))
	b.WriteString("<br>")
	b.WriteString(heading("Recommendations"))
	b.WriteString(para("One best medicine per detected condition (not an exhaustive list)."))
	b.WriteString(`<ul style="margin: 0.5rem 0 0.75rem 1.25rem;">`)
	b.WriteString(items.String())
	b.WriteString("</ul>")
	b.WriteString(`<div style="color: rgba(255,255,255,0.75); font-size: 0.95em;">Educational only. Always follow the label and consult a clinician if unsure.</div>`)
	b.WriteString("<br>")
	b.WriteString(`<div style="margin-top:0.65rem;"><strong>Safety note:</strong> ` + safetyNote + "</div>")
	return b.String()
}

func recommendationItem(rec recommend.Recommendation) string {
	label := rec.ClusterLabel
	if label == "" {
		label = defaultLabel
	}
	med := rec.Medicine
	name := med.Name
	if name == "" {
		name = "a suitable medicine"
	}

	var b strings.Builder
	b.WriteString(`<li style="margin-bottom: 0.75rem;">`)
	fmt.Fprintf(&b, "<strong>%s:</strong> %s", esc(label), esc(name))
	if med.Dosage != "" {
		fmt.Fprintf(&b, " · <em>Dosage:</em> %s", esc(med.Dosage))
	}
	if med.URL != "" {
		fmt.Fprintf(&b, ` <a href="%s" target="_blank" rel="noopener noreferrer">View</a>`, esc(med.URL))
	}
	fmt.Fprintf(&b, `<div style="margin-top:0.35rem;"><img src="%s" alt="%s" style="%s"></div>`, esc(med.Image), esc(name), imageStyle)

	why := rec.Why
	if len(why) > maxWhyLines {
		why = why[:maxWhyLines]
	}
	if len(why) > 0 {
		escaped := make([]string, len(why))
		for i, w := range why {
			escaped[i] = esc(w)
		}
		fmt.Fprintf(&b, `<div style="margin-top: 0.25rem; %s"><em>Why this medicine:</em> %s</div>`, mutedStyle, strings.Join(escaped, "; "))
	}
	b.WriteString("</li>")
	return b.String()
}
