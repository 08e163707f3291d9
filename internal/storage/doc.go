package storage

// Package storage persists the bot's two record types:
//   - afterstream notes (append + resolve, reviewed after the stream)
//   - tts requests (append + mark-read log; nothing here ever deletes)
