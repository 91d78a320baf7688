package profile

import (
	"fmt"
	"hash/fnv"
	"net/url"
)

// Avatar styles rotated by name hash so a character always gets the
// same look.
var avatarStyles = []string{"adventurer", "personas", "big-smile", "avataaars"}

// AvatarURL returns a deterministic avatar image URL for a character
// name.
func AvatarURL(name string) string {
	if name == "" {
		return "https://ui-avatars.com/api/?name=%3F&size=400&background=6c5ce7&color=fff"
	}
	h := fnv.New32a()
	h.Write([]byte(name))
	sum := h.Sum32()
	style := avatarStyles[int(sum)%len(avatarStyles)]
	return fmt.Sprintf("https://api.dicebear.com/7.x/%s/svg?seed=%s&size=400", style, url.QueryEscape(name))
}
