package normalize

import (
	"strings"
	"unicode"
)

var phoneticAlphabet = map[rune]string{
	'a': "Alpha", 'b': "Bravo", 'c': "Charlie", 'd': "Delta", 'e': "Echo",
	'f': "Foxtrot", 'g': "Golf", 'h': "Hotel", 'i': "India", 'j': "Juliett",
	'k': "Kilo", 'l': "Lima", 'm': "Mike", 'n': "November", 'o': "Oscar",
	'p': "Papa", 'q': "Quebec", 'r': "Romeo", 's': "Sierra", 't': "Tango",
	'u': "Uniform", 'v': "Victor", 'w': "Whiskey", 'x': "X-ray", 'y': "Yankee",
	'z': "Zulu",
	'0': "Zero", '1': "One", '2': "Two", '3': "Three", '4': "Four",
	'5': "Five", '6': "Six", '7': "Seven", '8': "Eight", '9': "Nine",
	'@': "at", '.': "dot", '_': "underscore", '-': "dash", '+': "plus",
}

// Phonetic spells s one character at a time, joined by ", ". Characters
// without a phonetic word are emitted as-is.
func Phonetic(s string) string {
	if s == "" {
		return ""
	}
	words := make([]string, 0, len(s))
	for _, r := range s {
		if word, ok := phoneticAlphabet[unicode.ToLower(r)]; ok {
			words = append(words, word)
			continue
		}
		words = append(words, string(r))
	}
	return strings.Join(words, ", ")
}
