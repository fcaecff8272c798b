package intent

// Literal keyword sets for English, Dutch, and Arabic. Best-effort matching,
// not translation: a keyword hit in any language triggers the same intent.

var listVerbs = []string{
	// EN
	"list", "show", "which", "what", "what are", "give me", "display", "enumerate", "all",
	// NL
	"toon", "laat zien", "welke", "wat zijn", "geef me", "alle",
	// AR (plus common transliterated forms)
	"اعرض", "ما هي", "ماهي", "ايش", "كم", "عرض", "عدد", "الكل",
}

var floorWords = []string{
	// EN
	"floor", "floors", "level", "levels", "storey", "storeys", "story", "stories",
	// NL
	"verdieping", "verdiepingen", "etage", "etages", "niveau", "niveaus",
	// AR
	"طابق", "طوابق", "دور", "ادوار", "أدوار", "دوران",
}

var roomWords = []string{
	// EN
	"room", "rooms",
	// NL
	"ruimte", "ruimtes", "kamer", "kamers",
	// AR
	"غرفة", "غرف",
}

var meetingRoomWords = []string{
	"meeting room", "meeting rooms",
	"vergaderruimte", "vergaderruimtes",
	"غرفة اجتماع", "غرف اجتماع",
}

var nowWords = []string{"now", "currently", "nu", "الان", "حالياً"}

var freeWords = []string{"free", "vrij", "متاح"}

var coffeeWords = []string{"coffee", "pantry", "kitchen", "koffie", "keuken", "مطبخ", "قهوة"}

var machineWords = []string{
	"machine", "machines", "placement", "spots",
	"apparaat", "plaatsen",
	"مكان", "اماكن",
}

// shortFloorAsks are whole-query forms of "list floors" that carry no verb.
var shortFloorAsks = map[string]struct{}{
	"floors":              {},
	"list floors":         {},
	"levels":              {},
	"show floors":         {},
	"welke verdiepingen":  {},
	"toon verdiepingen":   {},
	"كم طابق":             {},
	"عدد الطوابق":         {},
}
