package catalog

import "testing"

// Trimmed down company page keeping the selectors the parser relies on.
const companyPageFixture = `
<html><body>
<div class="wrap_company">
	<h2><a href="/item/main.naver?code=005930">삼성전자</a></h2>
	<div class="description">
		<span class="code">005930</span>
		<img src="https://ssl.pstatic.net/imgstock/images5/ico_kospi.gif" alt="코스피" class="kospi">
	</div>
</div>
<div class="section trade_compare">
	<h4 class="h_sub sub_tit7">
		<em>동일업종비교 : <a href="/sise/sise_group_detail.naver?type=upjong&no=278">반도체와반도체장비</a></em>
	</h4>
</div>
</body></html>`

func TestParseCompanyPage(t *testing.T) {
	name, exchange, sector := parseCompanyPage(companyPageFixture)

	if name != "삼성전자" {
		t.Errorf("name = %q, want 삼성전자", name)
	}
	if exchange != "KOSPI" {
		t.Errorf("exchange = %q, want KOSPI", exchange)
	}
	if sector != "반도체와반도체장비" {
		t.Errorf("sector = %q, want 반도체와반도체장비", sector)
	}
}

func TestParseCompanyPage_Kosdaq(t *testing.T) {
	page := `<div class="wrap_company">
		<h2><a>에코프로</a></h2>
		<div class="description"><img alt="코스닥" class="kosdaq"></div>
	</div>`

	name, exchange, sector := parseCompanyPage(page)
	if name != "에코프로" || exchange != "KOSDAQ" {
		t.Errorf("got %q/%q, want 에코프로/KOSDAQ", name, exchange)
	}
	if sector != "" {
		t.Errorf("sector = %q, want empty when the compare section is missing", sector)
	}
}

func TestParseCompanyPage_Empty(t *testing.T) {
	name, exchange, sector := parseCompanyPage("<html><body>점검 중입니다</body></html>")
	if name != "" || exchange != "" || sector != "" {
		t.Errorf("got %q/%q/%q, want all empty on an unrecognized page", name, exchange, sector)
	}
}
