package asset

// CatArt is the default actor drawn at the bottom of the scene
const CatArt = ` /\_/\
( | | )
 >   <`

// BunnyArt is an alternative actor
const BunnyArt = ` (\_/)
( o.o )
 (> <)`

// FarewellText is written to the client when a session ends
const FarewellText = "\r\nThanks for visiting <3\r\n"
