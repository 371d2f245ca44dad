package engine

import "testing"

func TestDomainInboxSubmitAcceptsNewURLs(t *testing.T) {
	inbox := NewDomainInbox(10)
	accepted, err := inbox.Submit([]string{"https://a.com", "https://b.com"}, "primary")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if accepted != 2 {
		t.Errorf("expected 2 accepted, got %d", accepted)
	}
}

func TestDomainInboxSubmitSkipsDuplicates(t *testing.T) {
	inbox := NewDomainInbox(10)
	inbox.Submit([]string{"https://a.com"}, "primary")
	accepted, err := inbox.Submit([]string{"https://a.com", "https://b.com"}, "primary")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if accepted != 1 {
		t.Errorf("expected only the new URL to be accepted, got %d", accepted)
	}
}

func TestDomainInboxSubmitRejectsOverCapacity(t *testing.T) {
	inbox := NewDomainInbox(1)
	accepted, err := inbox.Submit([]string{"https://a.com", "https://b.com"}, "primary")
	if err == nil {
		t.Fatal("expected an error once the inbox capacity is exceeded")
	}
	if accepted != 1 {
		t.Errorf("expected the first URL within capacity to be accepted, got %d", accepted)
	}
}

func TestDomainInboxChanDeliversSubmitted(t *testing.T) {
	inbox := NewDomainInbox(1)
	inbox.Submit([]string{"https://a.com"}, "primary")

	req := <-inbox.Chan()
	if req.URLString() != "https://a.com" {
		t.Errorf("expected https://a.com off the channel, got %s", req.URLString())
	}
}
