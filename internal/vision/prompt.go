package vision

// PromptVersion identifies the instruction set sent with every extraction
// request. Bump it whenever the wording or schema below changes so stored
// responses remain attributable to the contract that produced them.
const PromptVersion = "overtime-slip/v2"

// BuildOvertimePrompt returns the fixed extraction prompt for handwritten
// overtime slips. The model must report handwritten content only, ignore
// the printed form framing, and emit the unresolved marker per field it
// cannot read.
func BuildOvertimePrompt() string {
	return `你是一個專業的繁體中文文字辨識專家，擅長辨識手寫及印刷體的繁體中文。

請仔細觀察這張加班單掃描圖片，辨識表格中所有的加班記錄列。

重要：
- 一張圖片可能包含多筆加班記錄（多列），請逐列辨識，每一列都是一筆獨立的加班記錄
- 主要辨識手寫內容，忽略表格本身的印刷框線與欄位標題
- 「加班事由」欄位通常是印刷體，也需要讀取該欄位格子內的完整內容
- 絕對不要讀取「無法線上申請事由」欄位下方的印刷體內容

對於每一筆加班記錄，請提取：
1. employee_name：從「簽到（退）簽」欄位中的手寫簽名辨識員工姓名
2. date：加班日期。若為民國年（例如 114），請轉換為西元年（民國年 + 1911 = 西元年），輸出格式 YYYY-MM-DD
3. sign_in_time：「加班時間」表格中「起」欄位的手寫內容，輸出格式 HH:MM（24小時制）
4. sign_out_time：「加班時間」表格中「迄」欄位的手寫內容，輸出格式 HH:MM（24小時制）
5. overtime_period：加班時段長度，輸出為小時數（例如「4小時」輸出 "4"）
6. reason：「加班事由」欄位中對應該列的完整文字，包括括號內的補充說明
7. overtime_type：「加班費」或「補休」。此欄位需配合「時數」欄位判斷，時數不為 0 的選項才是申請類別
8. hours：「時數」欄位的內容，輸出為數值字串（例如 "1.0"）

回傳格式：只回傳合法 JSON，不要使用 markdown 程式碼區塊，不要加任何說明文字。
頂層結構為 {"entries": [...]}，entries 中每個物件包含上述八個欄位，值一律為字串。

如果某個欄位無法辨識，請填入「無法辨識」，不要留空、不要猜測。
請辨識圖片中所有的加班記錄列，不要遺漏任何一筆。`
}
