// Package chats holds the conversation model shared by every reasoner and
// provider adapter. The sub-packages stack bottom-up:
// [github.com/reedham/tether/pkg/chats/role] and
// [github.com/reedham/tether/pkg/chats/content] define the vocabulary (roles,
// text, tool calls, tool results),
// [github.com/reedham/tether/pkg/chats/message] combines them into messages,
// and [github.com/reedham/tether/pkg/chats/chat] collects messages into an
// append-only conversation. No provider or API code lives here, so adapters
// can depend on exactly the layer they need.
package chats
