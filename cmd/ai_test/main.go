package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"go-outreach-automation/internal/ai"
	"go-outreach-automation/internal/models"
)

// Generates one outbound draft and one follow-up for a made-up contact so prompt
// changes can be eyeballed without running discovery.
func main() {
	name := flag.String("name", "Alice Nguyen", "contact name")
	company := flag.String("company", "Acme Labs", "company")
	title := flag.String("title", "Head of Growth", "contact title")
	bio := flag.String("bio", "Growth @AcmeLabs. Building onchain payments.", "X bio")
	flag.Parse()

	apiKey := os.Getenv("GROQ_API_KEY")
	if apiKey == "" {
		log.Println("GROQ_API_KEY environment variable not set. Please set it to test the AI.")
		return
	}
	client := ai.NewGrokClient(apiKey, ai.WithBaseURL(os.Getenv("AI_BASE_URL")))
	ctx := context.Background()

	contact := models.Contact{Name: *name, Company: *company, Title: *title, XBio: *bio}
	target := &models.Target{TeamName: *company, IsWeb3: true}

	fmt.Println("Sending request to the model for an outbound draft...")
	draft, err := client.GenerateOutbound(ctx, ai.OutboundRequest{Contact: contact, Target: target})
	if err != nil {
		log.Fatalf("GenerateOutbound failed: %v", err)
	}
	fmt.Printf("\nSuccess! Draft:\n%s\n", draft)

	followUp, err := client.GenerateFollowUp(ctx, *name, *company, draft)
	if err != nil {
		log.Fatalf("GenerateFollowUp failed: %v", err)
	}
	fmt.Printf("\nFollow-up:\n%s\n", followUp)
}
