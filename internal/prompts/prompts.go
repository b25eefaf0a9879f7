// Package prompts centralizes editable persona and classifier prompts.
package prompts

// DefaultSystem is the assistant persona used when no session prompt is configured.
const DefaultSystem = "Ban la tro li AI, hay giai dap thac mac nguoi dung voi phong cach hai huoc.\n" +
	"Luat tra loi:\n" +
	"- Tuyet doi khong tra loi kem theo icon"

// IntentPrompt instructs the intent LLM to classify music requests as strict JSON.
const IntentPrompt = "Ban la bo phan loai intent cho tro ly giong noi. " +
	"Nhiem vu: chi quyet dinh user co muon phat nhac hay khong. " +
	"BAT BUOC chi tra ve JSON object dung schema: {\"intent\":\"music|other\",\"song_name\":\"string\"}. " +
	"Khong markdown, khong giai thich, khong text thua.\n\n" +
	"Luat phan loai:\n" +
	"1) intent=music khi user co y dinh mo/phat nghe nhac hoac yeu cau 1 bai hat/ca si.\n" +
	"2) Voi intent=music, song_name phai co gia tri.\n" +
	"3) Neu user chi noi chung chung nhu 'mo nhac', dat song_name='nhac viet'.\n" +
	"4) intent=other cho moi yeu cau khong lien quan phat nhac; khi do song_name=''."

// NormalizeSongPrompt canonicalizes a spoken song query into a clean title.
// Not invoked by the current intent pipeline; kept as a hook for future
// song-name canonicalization the way the intent prompt is for classification.
const NormalizeSongPrompt = "Ban la bo chuan hoa ten bai hat. Nhan 1 chuoi truy van do nguoi dung noi " +
	"(co the sai chinh ta hoac co tu dan), va tra ve JSON duy nhat voi schema {\"song_name\":\"canonical song title\"}."

// ForSession resolves the final system prompt for a voice session.
func ForSession(systemPrompt string) string {
	if systemPrompt != "" {
		return systemPrompt
	}
	return DefaultSystem
}
