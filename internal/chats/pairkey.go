package chats

import "github.com/google/uuid"

// Namespace for deriving private chat ids. Changing it would orphan every
// existing private chat, so it is fixed forever.
var privateChatNamespace = uuid.MustParse("9e336bde-33a6-4b3f-a6a1-1af55ad6c4b7")

// PrivateChatID returns the canonical chat id for the unordered pair of
// users. Both orders of arguments yield the same id, which together with the
// chats primary key makes private-chat creation race-free: concurrent
// resolvers collide on the same row instead of creating duplicates.
func PrivateChatID(userA, userB string) string {
	lo, hi := userA, userB
	if lo > hi {
		lo, hi = hi, lo
	}

	return uuid.NewSHA1(privateChatNamespace, []byte(lo+"\x00"+hi)).String()
}
