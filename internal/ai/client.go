package ai

import (
	"context"
	"fmt"
	"strings"

	"go-outreach-automation/internal/models"
)

// Client is the interface for AI providers
type Client interface {
	// GenerateOutbound writes the first message to a contact. Regenerate asks for a
	// different angle than the previous draft.
	GenerateOutbound(ctx context.Context, req OutboundRequest) (string, error)
	GenerateFollowUp(ctx context.Context, name, company, original string) (string, error)
	// ExtractConversation reads a chat screenshot and returns the transcript.
	ExtractConversation(ctx context.Context, screenshotPNG []byte) (string, error)
}

type OutboundRequest struct {
	Contact    models.Contact
	Target     *models.Target
	Regenerate bool
	Previous   string
}

func buildOutboundSystemPrompt() string {
	return `You write short first-touch Telegram messages for a B2B sales team.
Rules:
1. Two or three short paragraphs separated by a blank line. No more than 80 words in total.
2. Open with something specific to the person or their company. Never open with "I hope this finds you well".
3. One clear, low-friction ask at the end (a quick call or a reply).
4. Plain text only. No markdown, no emojis, no links, no sign-off with a name.
Return ONLY the message text.`
}

func buildOutboundUserPrompt(req OutboundRequest) string {
	var b strings.Builder
	c := req.Contact
	fmt.Fprintf(&b, "Contact: %s\nCompany: %s\n", c.Name, c.Company)
	if c.Title != "" {
		fmt.Fprintf(&b, "Title: %s\n", c.Title)
	}
	if c.XBio != "" {
		fmt.Fprintf(&b, "X bio: %s\n", c.XBio)
	}
	if t := req.Target; t != nil {
		if t.Website != "" {
			fmt.Fprintf(&b, "Company website: %s\n", t.Website)
		}
		if t.IsWeb3 {
			b.WriteString("The company is a web3 project.\n")
		}
		if t.RaisedUSD != nil {
			fmt.Fprintf(&b, "Raised: $%.0f\n", *t.RaisedUSD)
		}
		if t.Notes != "" {
			fmt.Fprintf(&b, "Notes: %s\n", t.Notes)
		}
	}
	if req.Regenerate {
		b.WriteString("\nWrite a noticeably different version from the previous draft")
		if req.Previous != "" {
			fmt.Fprintf(&b, ":\n%s\n", req.Previous)
		} else {
			b.WriteString(".\n")
		}
	}
	return b.String()
}

func buildFollowUpPrompt(name, company, original string) string {
	return fmt.Sprintf(`Write a brief, friendly follow-up Telegram message to %s at %s who has not replied.
Do not repeat the original pitch. One or two short paragraphs, plain text, no sign-off.

Original message:
%s

Return ONLY the message text.`, name, company, original)
}

const extractPrompt = `This is a screenshot of a Telegram chat. Transcribe the visible conversation in order,
one message per line, prefixed with "Me:" for outgoing messages (right side) and "Them:" for
incoming messages (left side). Skip timestamps, reactions and UI chrome. Return ONLY the transcript.`
