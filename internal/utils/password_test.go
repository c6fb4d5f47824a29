package utils

import "testing"

func TestServiceKeySecretHashing(t *testing.T) {
	h, err := HashSecret("n8n-workflow-secret", 4)
	if err != nil {
		t.Fatal(err)
	}
	if h == "n8n-workflow-secret" {
		t.Fatal("secret stored in clear")
	}
	if !VerifySecret(h, "n8n-workflow-secret") {
		t.Fatal("matching secret rejected")
	}
	for _, wrong := range []string{"", "nope", "n8n-workflow-secreT"} {
		if VerifySecret(h, wrong) {
			t.Fatalf("%q accepted", wrong)
		}
	}
	if VerifySecret("not-a-bcrypt-hash", "n8n-workflow-secret") {
		t.Fatal("malformed hash accepted")
	}
}
