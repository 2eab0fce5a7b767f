// MBTI reference data for the board game.
//
// Each of the 16 types carries an 8-slot cognitive function stack: the four
// "bright" functions (dominant, auxiliary, tertiary, inferior, per the Grant
// ordering) followed by their four shadow counterparts with flipped attitudes.
// The stack gates movement on the hex board and feeds the tension multiplier.

package main

import "strings"

var functionCodes = [8]string{"Ni", "Ne", "Si", "Se", "Ti", "Te", "Fi", "Fe"}

// Persona names shown on hex tiles, one per cognitive function.
var functionArchetypes = map[string]string{
	"Ni": "The Seer",
	"Ne": "The Explorer",
	"Si": "The Keeper",
	"Se": "The Ranger",
	"Ti": "The Analyst",
	"Te": "The Marshal",
	"Fi": "The Dreamer",
	"Fe": "The Host",
}

// Persona names shown on grid tiles, one per MBTI type.
var typeArchetypes = map[string]string{
	"INTJ": "Architect", "INTP": "Logician", "ENTJ": "Commander", "ENTP": "Debater",
	"INFJ": "Advocate", "INFP": "Mediator", "ENFJ": "Protagonist", "ENFP": "Campaigner",
	"ISTJ": "Inspector", "ISFJ": "Defender", "ESTJ": "Executive", "ESFJ": "Consul",
	"ISTP": "Virtuoso", "ISFP": "Adventurer", "ESTP": "Entrepreneur", "ESFP": "Entertainer",
}

var mbtiTypes = [16]string{
	"INTJ", "INTP", "ENTJ", "ENTP",
	"INFJ", "INFP", "ENFJ", "ENFP",
	"ISTJ", "ISFJ", "ESTJ", "ESFJ",
	"ISTP", "ISFP", "ESTP", "ESFP",
}

// Temperament groups used for grid-board quadrants.
var temperamentGroups = map[string][4]string{
	"NF": {"INFJ", "INFP", "ENFJ", "ENFP"},
	"NT": {"INTJ", "INTP", "ENTJ", "ENTP"},
	"SP": {"ISTP", "ISFP", "ESTP", "ESFP"},
	"SJ": {"ISTJ", "ISFJ", "ESTJ", "ESFJ"},
}

func isValidMBTI(t string) bool {
	_, ok := typeArchetypes[t]
	return ok
}

func temperamentOf(t string) string {
	switch {
	case strings.Contains(t, "N") && strings.Contains(t, "F"):
		return "NF"
	case strings.Contains(t, "N"):
		return "NT"
	case strings.HasSuffix(t, "P"):
		return "SP"
	default:
		return "SJ"
	}
}

func flipLetter(l byte) byte {
	switch l {
	case 'N':
		return 'S'
	case 'S':
		return 'N'
	case 'T':
		return 'F'
	case 'F':
		return 'T'
	}
	return l
}

func flipAttitude(a byte) byte {
	if a == 'e' {
		return 'i'
	}
	return 'e'
}

// cognitiveStack derives the 8-function stack for a 4-letter type.
// Slots 0-3 are dominant, auxiliary, tertiary, inferior; slots 4-7 are the
// same functions with flipped attitudes (the shadow).
func cognitiveStack(t string) [8]string {
	perceiving := t[1] // N or S
	judging := t[2]    // T or F

	var pAtt, jAtt byte // attitudes of the perceiving and judging functions
	if t[3] == 'J' {
		jAtt, pAtt = 'e', 'i'
	} else {
		jAtt, pAtt = 'i', 'e'
	}

	pFunc := string(perceiving) + string(pAtt)
	jFunc := string(judging) + string(jAtt)

	var dom, aux string
	if t[0] == 'E' {
		// Extraverts lead with whichever function is extraverted.
		if pAtt == 'e' {
			dom, aux = pFunc, jFunc
		} else {
			dom, aux = jFunc, pFunc
		}
	} else {
		if pAtt == 'i' {
			dom, aux = pFunc, jFunc
		} else {
			dom, aux = jFunc, pFunc
		}
	}

	// Tertiary flips the auxiliary's letter and takes the dominant's attitude.
	// Inferior flips both halves of the dominant.
	tert := string(flipLetter(aux[0])) + string(dom[1])
	inf := string(flipLetter(dom[0])) + string(flipAttitude(dom[1]))

	var stack [8]string
	stack[0], stack[1], stack[2], stack[3] = dom, aux, tert, inf
	for i := 0; i < 4; i++ {
		stack[i+4] = string(stack[i][0]) + string(flipAttitude(stack[i][1]))
	}
	return stack
}

// stackIndexOf returns the slot of f in the stack, or -1.
func stackIndexOf(stack [8]string, f string) int {
	for i, s := range stack {
		if s == f {
			return i
		}
	}
	return -1
}

// advanceStack scans forward cyclically from idx+1 for the slot holding f.
// Returns idx unchanged if f is not in the stack (wildcards never advance).
func advanceStack(stack [8]string, idx int, f string) int {
	for i := 1; i <= len(stack); i++ {
		j := (idx + i) % len(stack)
		if stack[j] == f {
			return j
		}
	}
	return idx
}

// letterDiff counts differing positions between two 4-letter type codes.
func letterDiff(a, b string) int {
	diff := 0
	for i := 0; i < 4 && i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			diff++
		}
	}
	return diff
}
