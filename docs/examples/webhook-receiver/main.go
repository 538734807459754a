// Beacon Automation Webhook Receiver Example
//
// This is a minimal example of how to receive and verify the signed
// conversion payloads the beacon forwards to an automation system.
//
// Usage:
//   export WEBHOOK_SECRET_KEY="your_secret_here"
//   go run main.go
//
// Then point AUTOMATION_WEBHOOK_URL at http://your-server:9000/webhook

package main

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"os"
)

// ConversionPayload is the subset of the webhook body this example
// cares about; unknown fields are ignored.
type ConversionPayload struct {
	EventName   string  `json:"event_name"`
	EventID     string  `json:"event_id"`
	Destination string  `json:"destination"`
	Contact     Contact `json:"contact"`
	RequestID   string  `json:"request_id"`
}

type Contact struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

func main() {
	secret := os.Getenv("WEBHOOK_SECRET_KEY")
	if secret == "" {
		log.Fatal("WEBHOOK_SECRET_KEY environment variable is required")
	}

	http.HandleFunc("/webhook", webhookHandler(secret))
	http.HandleFunc("/health", healthHandler)

	log.Println("Starting webhook receiver on :9000")
	log.Println("Endpoint: http://localhost:9000/webhook")
	log.Fatal(http.ListenAndServe(":9000", nil))
}

func webhookHandler(secret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			log.Printf("Error reading body: %v", err)
			http.Error(w, "Bad request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		// checksum mode means the sender had no secret configured;
		// treat those payloads as unverified.
		if r.Header.Get("X-Signature-Mode") != "hmac" {
			log.Println("Payload not HMAC-signed, rejecting")
			http.Error(w, "Unverified payload", http.StatusUnauthorized)
			return
		}

		signature := r.Header.Get("X-Signature")
		if signature == "" {
			log.Println("Missing X-Signature header")
			http.Error(w, "Missing signature", http.StatusUnauthorized)
			return
		}

		if !verifySignature(signature, body, secret) {
			log.Println("Invalid signature")
			http.Error(w, "Invalid signature", http.StatusUnauthorized)
			return
		}

		var payload ConversionPayload
		if err := json.Unmarshal(body, &payload); err != nil {
			log.Printf("Error parsing JSON: %v", err)
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}

		log.Printf("✓ Received %s event %s", payload.EventName, payload.EventID)
		log.Printf("  Request ID:  %s", payload.RequestID)
		log.Printf("  Destination: %s", payload.Destination)
		log.Printf("  Contact:     %s <%s>", payload.Contact.Name, payload.Contact.Email)

		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "received"})
	}
}

// verifySignature checks the hex HMAC-SHA256 of the exact body bytes in
// constant time.
func verifySignature(signature string, body []byte, secret string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(signature), []byte(expected))
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
