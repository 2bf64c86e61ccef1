package phonetic

// jyutpingTable is the curated character→syllable lookup used as the primary
// romanization source. It covers the high-frequency characters that appear in
// beginner and intermediate Cantonese vocabulary lists. Characters not found
// here fall through to the Mandarin pinyin romanizer plus the cross-dialect
// substitution tables below.
//
// The table is hand-curated and approximate. It is a scoring aid, not a
// linguistic authority; alignment never trusts a single romanization source.
var jyutpingTable = map[rune]string{
	'一': "jat1", '二': "ji6", '三': "saam1", '四': "sei3", '五': "ng5",
	'六': "luk6", '七': "cat1", '八': "baat3", '九': "gau2", '十': "sap6",
	'百': "baak3", '千': "cin1", '萬': "maan6", '零': "ling4",
	'人': "jan4", '我': "ngo5", '你': "nei5", '佢': "keoi5", '她': "taa1",
	'他': "taa1", '大': "daai6", '小': "siu2", '好': "hou2", '唔': "m4",
	'係': "hai6", '是': "si6", '不': "bat1", '冇': "mou5", '有': "jau5",
	'水': "seoi2", '火': "fo2", '山': "saan1", '石': "sek6", '田': "tin4",
	'日': "jat6", '月': "jyut6", '年': "nin4", '天': "tin1", '地': "dei6",
	'中': "zung1", '國': "gwok3", '學': "hok6", '生': "sang1", '先': "sin1",
	'貓': "maau1", '狗': "gau2", '鳥': "niu5", '魚': "jyu4", '馬': "maa5",
	'牛': "ngau4", '羊': "joeng4", '豬': "zyu1", '雞': "gai1", '鴨': "aap3",
	'食': "sik6", '飯': "faan6", '茶': "caa4", '肉': "juk6", '菜': "coi3",
	'米': "mai5", '麵': "min6", '包': "baau1", '蛋': "daan2", '奶': "naai5",
	'糖': "tong4", '鹽': "jim4", '油': "jau4", '酒': "zau2", '湯': "tong1",
	'杯': "bui1", '碗': "wun2", '碟': "dip6", '刀': "dou1", '叉': "caa1",
	'家': "gaa1", '媽': "maa1", '爸': "baa1", '哥': "go1", '姐': "ze2",
	'弟': "dai6", '妹': "mui6", '仔': "zai2", '女': "neoi5", '男': "naam4",
	'朋': "pang4", '友': "jau5", '老': "lou5", '師': "si1", '醫': "ji1",
	'書': "syu1", '筆': "bat1", '紙': "zi2", '枱': "toi2", '椅': "ji2",
	'車': "ce1", '船': "syun4", '飛': "fei1", '機': "gei1", '站': "zaam6",
	'門': "mun4", '窗': "coeng1", '床': "cong4", '房': "fong4", '屋': "uk1",
	'街': "gaai1", '路': "lou6", '橋': "kiu4", '河': "ho4", '海': "hoi2",
	'雨': "jyu5", '風': "fung1", '雪': "syut3", '雲': "wan4", '電': "din6",
	'話': "waa2", '聽': "teng1", '講': "gong2", '睇': "tai2", '望': "mong6",
	'行': "hang4", '走': "zau2", '跑': "paau2", '企': "kei5", '坐': "co5",
	'瞓': "fan3", '買': "maai5", '賣': "maai6", '錢': "cin2", '銀': "ngan4",
	'金': "gam1", '紅': "hung4", '黃': "wong4", '藍': "laam4", '綠': "luk6",
	'白': "baak6", '黑': "hak1", '色': "sik1", '灰': "fui1", '橙': "caang2",
	'新': "san1", '舊': "gau6", '高': "gou1", '低': "dai1", '長': "coeng4",
	'短': "dyun2", '快': "faai3", '慢': "maan6", '多': "do1", '少': "siu2",
	'早': "zou2", '晚': "maan5", '今': "gam1", '明': "ming4", '琴': "kam4",
	'時': "si4", '鐘': "zung1", '點': "dim2", '分': "fan1", '秒': "miu5",
	'星': "sing1", '期': "kei4", '禮': "lai5", '拜': "baai3",
	'愛': "oi3", '想': "soeng2", '要': "jiu3", '識': "sik1", '知': "zi1",
	'嚟': "lai4", '去': "heoi3", '返': "faan1", '出': "ceot1", '入': "jap6",
	'上': "soeng6", '下': "haa6", '左': "zo2", '右': "jau6", '內': "noi6",
	'前': "cin4", '後': "hau6", '東': "dung1", '南': "naam4", '西': "sai1",
	'北': "bak1", '香': "hoeng1", '港': "gong2", '廣': "gwong2", '州': "zau1",
	'文': "man4", '字': "zi6", '讀': "duk6", '寫': "se2", '畫': "waak6",
	'唱': "coeng3", '歌': "go1", '跳': "tiu3", '舞': "mou5", '玩': "waan2",
	'笑': "siu3", '喊': "haam3", '開': "hoi1", '關': "gwaan1", '燈': "dang1",
	'熱': "jit6", '凍': "dung3", '暖': "nyun5", '涼': "loeng4", '凉': "loeng4",
	'乾': "gon1", '濕': "sap1", '頭': "tau4", '手': "sau2", '腳': "goek3",
	'口': "hau2", '耳': "ji5", '鼻': "bei6", '心': "sam1",
	'眼': "ngaan5", '面': "min6", '髮': "faat3", '牙': "ngaa4", '脷': "lei6",
	'花': "faa1", '草': "cou2", '樹': "syu6", '葉': "jip6", '果': "gwo2",
	'橘': "gwat1", '蕉': "ziu1", '蘋': "ping4", '梨': "lei4",
	'謝': "ze6", '該': "goi1", '晨': "san4",
}

// pinyinInitials lists Mandarin pinyin initials longest-first so the parser
// can greedily split a syllable into initial + final.
var pinyinInitials = []string{
	"zh", "ch", "sh",
	"b", "p", "m", "f", "d", "t", "n", "l",
	"g", "k", "h", "j", "q", "x", "r",
	"z", "c", "s", "y", "w",
}

// initialSubstitutions maps Mandarin initials to their most common Cantonese
// reflex. Mandarin retroflexes collapse into the Cantonese sibilant series;
// the palatals split between s/z/c.
var initialSubstitutions = map[string]string{
	"zh": "z",
	"ch": "c",
	"sh": "s",
	"r":  "j",
	"x":  "s",
	"q":  "c",
	"j":  "z",
	"y":  "j",
}

// finalSubstitutions maps Mandarin finals to approximate Cantonese finals.
// Only finals whose spelling differs between the two romanizations appear;
// anything absent passes through unchanged.
var finalSubstitutions = map[string]string{
	"a":   "aa",
	"ai":  "aai",
	"ao":  "ou",
	"an":  "aan",
	"ang": "ong",
	"en":  "an",
	"eng": "ang",
	"ia":  "aa",
	"iao": "iu",
	"ie":  "e",
	"in":  "an",
	"iu":  "au",
	"ong": "ung",
	"ou":  "au",
	"ua":  "aa",
	"uai": "aai",
	"uan": "yun",
	"ui":  "eoi",
	"un":  "an",
	"uo":  "o",
	"v":   "yu",
	"ve":  "yut",
}

// toneSubstitutions maps Mandarin tone digits to the closest Cantonese tone
// contour. The Mandarin neutral tone (5) has no Cantonese counterpart and is
// approximated as the mid level tone.
var toneSubstitutions = map[byte]byte{
	'1': '1',
	'2': '2',
	'3': '3',
	'4': '6',
	'5': '3',
}
