package domain

import (
	"testing"

	"mySocialApp/errs"
)

func intPtr(i int) *int { return &i }

func TestCanView(t *testing.T) {
	const (
		author   = 1
		friend   = 2
		stranger = 3
		target   = 4
	)
	tests := []struct {
		name       string
		visibility Visibility
		viewer     int
		isFriend   bool
		want       bool
	}{
		{"public stranger", Visibility{Scope: ScopePublic}, stranger, false, true},
		{"public author", Visibility{Scope: ScopePublic}, author, false, true},
		{"friendsOnly stranger", Visibility{Scope: ScopeFriendsOnly}, stranger, false, false},
		{"friendsOnly friend", Visibility{Scope: ScopeFriendsOnly}, friend, true, true},
		{"friendsOnly author", Visibility{Scope: ScopeFriendsOnly}, author, false, true},
		{"private friend", Visibility{Scope: ScopePrivate}, friend, true, false},
		{"private author", Visibility{Scope: ScopePrivate}, author, false, true},
		{"specificUser target", Visibility{Scope: ScopeSpecificUser, TargetID: intPtr(target)}, target, false, true},
		{"specificUser author", Visibility{Scope: ScopeSpecificUser, TargetID: intPtr(target)}, author, false, true},
		{"specificUser friend", Visibility{Scope: ScopeSpecificUser, TargetID: intPtr(target)}, friend, true, false},
		{"unknown scope", Visibility{Scope: "everyone"}, stranger, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			post := &Post{AuthorID: author, Visibility: tt.visibility}
			if got := CanView(tt.viewer, post, tt.isFriend); got != tt.want {
				t.Fatalf("expected %v got %v", tt.want, got)
			}
		})
	}
}

func TestVisibilityCheck(t *testing.T) {
	if err := (Visibility{Scope: ScopeSpecificUser}).Check(); errs.ErrorCode(err) != errs.EINVALID {
		t.Fatalf("expected invalid for missing target, got %v", err)
	}
	if err := (Visibility{Scope: ScopePublic, TargetID: intPtr(2)}).Check(); errs.ErrorCode(err) != errs.EINVALID {
		t.Fatalf("expected invalid for stray target, got %v", err)
	}
	if err := (Visibility{Scope: "nobody"}).Check(); errs.ErrorCode(err) != errs.EINVALID {
		t.Fatalf("expected invalid scope, got %v", err)
	}
	if err := (Visibility{Scope: ScopeSpecificUser, TargetID: intPtr(2)}).Check(); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestParseRequestAction(t *testing.T) {
	for in, want := range map[string]RequestAction{"accept": RequestAccept, "Reject": RequestReject} {
		got, err := ParseRequestAction(in)
		if err != nil || got != want {
			t.Fatalf("ParseRequestAction(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseRequestAction("ignore"); errs.ErrorCode(err) != errs.EINVALID {
		t.Fatalf("expected invalid action error, got %v", err)
	}
}

func TestNewFriendshipIsOrdered(t *testing.T) {
	a, b := NewFriendship(7, 3), NewFriendship(3, 7)
	if a != b || a.UserID != 3 || a.FriendID != 7 {
		t.Fatalf("expected the same ordered edge, got %+v and %+v", a, b)
	}
}

func TestTagsScan(t *testing.T) {
	var tags Tags
	if err := tags.Scan(`["go","social"]`); err != nil {
		t.Fatal(err)
	}
	if len(tags) != 2 || tags[1] != "social" {
		t.Fatalf("unexpected tags %v", tags)
	}
	v, err := Tags(nil).Value()
	if err != nil || v != "[]" {
		t.Fatalf("expected empty json array, got %v %v", v, err)
	}
}
