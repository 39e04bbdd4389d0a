package tools

// Per-tool prompt emphases, appended to the grounded prompt after the
// retrieved passages.
const (
	emphasisTanyaPDP = "Jawab pertanyaan secara umum berdasarkan kutipan di atas."

	emphasisCariPasal = "Sebutkan pasal yang paling relevan beserta referensi lengkapnya " +
		"(BAB dan nomor pasal), lalu ringkas isinya."

	emphasisDefinisi = "Berikan definisi istilah tersebut persis sebagaimana dirumuskan " +
		"dalam kutipan, dengan menyebut sumbernya."

	emphasisHak = "Sebutkan hak-hak Subjek Data Pribadi satu per satu sebagai daftar, " +
		"masing-masing dengan pasal sumbernya."

	emphasisKewajiban = "Sebutkan kewajiban Pengendali dan Prosesor Data Pribadi satu " +
		"per satu sebagai daftar, masing-masing dengan pasal sumbernya."

	emphasisSanksi = "Sebutkan sanksi yang diatur satu per satu sebagai daftar, " +
		"masing-masing dengan pasal sumbernya dan jenis sanksinya."
)
